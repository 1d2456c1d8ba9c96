package domain

import (
	"encoding/json"
	"testing"

	"editfixture/pkg/domain/settings"
)

func TestBundleKindsRoundTrip(t *testing.T) {
	end := int64(48)
	asset := "a"
	in := Bundle{
		Name:        "interview",
		Projects:    []Project{{Base: Base{ID: "p"}, Name: "Interview", Settings: settings.Map{"aspect": settings.String("16:9")}}},
		Chapters:    []Chapter{{Base: Base{ID: "c"}, ProjectID: "p"}},
		Timelines:   []Timeline{{Base: Base{ID: "t"}, ChapterID: "c", Type: "video"}},
		MediaAssets: []MediaAsset{{Base: Base{ID: "a"}, ProjectID: "p"}},
		Blocks:      []Block{{Base: Base{ID: "b"}, TimelineID: "t", MediaAssetID: &asset, FileRelativeEndFrame: &end}},
		Enrichment:  map[string]Enrichment{"a": {Faces: []Face{{ID: "f1", Frames: []int64{1, 2}}}}},
	}
	payloads, err := in.EncodeKinds()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if len(payloads) != len(BundleKinds) {
		t.Fatalf("expected one payload per kind, got %d", len(payloads))
	}
	out, err := DecodeBundle("interview", payloads)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Name != "interview" || len(out.Blocks) != 1 || *out.Blocks[0].FileRelativeEndFrame != 48 {
		t.Fatalf("unexpected bundle %+v", out)
	}
	if v, _ := out.Projects[0].Settings["aspect"].Str(); v != "16:9" {
		t.Fatalf("expected settings round trip")
	}
	if len(out.Enrichment["a"].Faces[0].Frames) != 2 {
		t.Fatalf("expected enrichment round trip, got %+v", out.Enrichment)
	}
}

func TestEncodeKindsEmptyCollections(t *testing.T) {
	payloads, err := Bundle{Name: "empty"}.EncodeKinds()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if string(payloads["blocks"]) != "[]" || string(payloads["enrichment"]) != "{}" {
		t.Fatalf("expected empty JSON containers, got %s %s", payloads["blocks"], payloads["enrichment"])
	}
	out, err := DecodeBundle("empty", payloads)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Enrichment != nil || len(out.Projects) != 0 {
		t.Fatalf("expected empty bundle, got %+v", out)
	}
}

func TestDecodeBundleErrors(t *testing.T) {
	if _, err := DecodeBundle("x", map[string][]byte{"blocks": []byte("{")}); err == nil {
		t.Fatalf("expected decode error")
	}
	out, err := DecodeBundle("x", map[string][]byte{"unknown": []byte("{"), "projects": nil})
	if err != nil || out.Name != "x" {
		t.Fatalf("expected unknown kinds ignored, got %+v %v", out, err)
	}
	raw, _ := json.Marshal([]Timeline{{Base: Base{ID: "t"}}})
	out, _ = DecodeBundle("x", map[string][]byte{"timelines": raw})
	if len(out.Timelines) != 1 {
		t.Fatalf("expected partial payload decode")
	}
}
