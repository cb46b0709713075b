package chat

import (
	"reflect"
	"testing"
)

func TestExtractReferences(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"none", "Hello there", nil},
		{"single", "Try [MOVIE_SEARCH:Dune]", []string{"Dune"}},
		{"trimmed", "[MOVIE_SEARCH:  Blade Runner 2049 ]", []string{"Blade Runner 2049"}},
		{"many keeps order and duplicates", "[MOVIE_SEARCH:Heat] [MOVIE_SEARCH:Alien][MOVIE_SEARCH:Heat]", []string{"Heat", "Alien", "Heat"}},
		{"non greedy", "[MOVIE_SEARCH:Up] and ] more", []string{"Up"}},
		{"empty title skipped", "[MOVIE_SEARCH: ]", []string{}},
		{"unterminated", "[MOVIE_SEARCH:Dun", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractReferences(tt.text)
			if len(got) == 0 && len(tt.want) == 0 {
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("ExtractReferences(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestStripMarkers(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"I recommend: [MOVIE_SEARCH:Dune] Enjoy!", "I recommend:  Enjoy!"},
		{"No markers", "No markers"},
		{"You want sci-fi.\n[MOVIE_SEARCH:Alien]\n[MOVIE_SEARCH:Solaris]", "You want sci-fi.\n\n"},
		{"Picks [MOVIE_SEARCH:Heat]\n\nRecommended Movies:\n- Heat\n- Ronin", "Picks "},
	}
	for _, tt := range tests {
		if got := StripMarkers(tt.text); got != tt.want {
			t.Errorf("StripMarkers(%q) = %q, want %q", tt.text, got, tt.want)
		}
	}
}
