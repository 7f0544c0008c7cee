package scorer

import (
	"math"
	"testing"

	"github.com/rushteam/modakit/graph"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"lowercase and split", "Red Summer-Dress", []string{"red", "summer", "dress"}},
		{"drop single chars", "a red X dress", []string{"red", "dress"}},
		{"digits kept", "air force 1s", []string{"air", "force", "1s"}},
		{"empty", "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Tokenize(tt.text)
			if len(got) != len(tt.want) {
				t.Fatalf("Tokenize = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("token[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestBuildTFIDF_SimilarDocsRankHigher(t *testing.T) {
	idx := BuildTFIDF(map[string]string{
		"d1": "red summer dress floral",
		"d2": "blue summer dress",
		"d3": "leather hiking boots",
	})

	simDress := graph.CosineMaps(idx.Vector("d1"), idx.Vector("d2"))
	simBoots := graph.CosineMaps(idx.Vector("d1"), idx.Vector("d3"))
	if simDress <= simBoots {
		t.Errorf("dress-dress sim %v should exceed dress-boots sim %v", simDress, simBoots)
	}
	if simBoots != 0 {
		t.Errorf("disjoint docs sim = %v, want 0", simBoots)
	}
}

func TestTFIDF_VectorsNormalized(t *testing.T) {
	idx := BuildTFIDF(map[string]string{"d1": "red red dress"})
	var norm float64
	for _, w := range idx.Vector("d1") {
		norm += w * w
	}
	if math.Abs(math.Sqrt(norm)-1) > 1e-9 {
		t.Errorf("vector norm = %v, want 1", math.Sqrt(norm))
	}
}

func TestTFIDF_VectorForUnknownTermsIgnored(t *testing.T) {
	idx := BuildTFIDF(map[string]string{"d1": "red dress"})
	vec := idx.VectorFor("red spaceship")
	if _, ok := vec["spaceship"]; ok {
		t.Error("out-of-vocabulary term projected")
	}
	if _, ok := vec["red"]; !ok {
		t.Error("in-vocabulary term dropped")
	}
}

func TestRestoreTFIDF(t *testing.T) {
	idx := BuildTFIDF(map[string]string{
		"d1": "red summer dress",
		"d2": "blue summer dress",
	})
	restored := RestoreTFIDF(idx.Vectors())

	if restored.Len() != 2 {
		t.Fatalf("restored Len = %d, want 2", restored.Len())
	}
	// 已索引文档之间的相似度不受 IDF 丢失影响
	want := graph.CosineMaps(idx.Vector("d1"), idx.Vector("d2"))
	got := graph.CosineMaps(restored.Vector("d1"), restored.Vector("d2"))
	if math.Abs(want-got) > 1e-9 {
		t.Errorf("restored sim = %v, want %v", got, want)
	}
}

func TestTopTerms(t *testing.T) {
	vec := map[string]float64{"low": 0.1, "high": 0.9, "mid": 0.5}
	got := TopTerms(vec, 2)
	if len(got) != 2 || got[0] != "high" || got[1] != "mid" {
		t.Errorf("TopTerms = %v, want [high mid]", got)
	}
}
