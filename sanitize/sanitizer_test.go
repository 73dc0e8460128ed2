package sanitize

import (
	"errors"
	"reflect"
	"strings"
	"sync"
	"testing"
)

func TestSanitize(t *testing.T) {
	s := MustNew(DefaultConfig())

	tests := []struct {
		name        string
		input       string
		want        string
		modified    bool
		neutralized []string
	}{
		{
			name:        "all mention",
			input:       "Hello @all!",
			want:        "Hello @\u200ball!",
			modified:    true,
			neutralized: []string{"@all"},
		},
		{
			name:        "plain user mention",
			input:       "Hello @user",
			want:        "Hello @user",
			neutralized: []string{},
		},
		{
			name:        "case preserved",
			input:       "@HERE and @Channel",
			want:        "@\u200bHERE and @\u200bChannel",
			modified:    true,
			neutralized: []string{"@here", "@channel"},
		},
		{
			name:        "repeated mention reported once",
			input:       "@everyone @everyone @everyone",
			want:        "@\u200beveryone @\u200beveryone @\u200beveryone",
			modified:    true,
			neutralized: []string{"@everyone"},
		},
		{
			name:        "word boundary",
			input:       "mail me at ops@allegro.test or @all_hands",
			want:        "mail me at ops@allegro.test or @all_hands",
			neutralized: []string{},
		},
		{
			name:        "javascript url",
			input:       "click JavaScript:alert(1)",
			want:        "click JavaScript\u200b:alert(1)",
			modified:    true,
			neutralized: []string{"javascript:"},
		},
		{
			name:        "data url",
			input:       "see data:text/html;base64,AAAA",
			want:        "see data\u200b:text/html;base64,AAAA",
			modified:    true,
			neutralized: []string{"data:"},
		},
		{
			name:        "data image untouched",
			input:       "data:image/png;base64,AAAA",
			want:        "data:image/png;base64,AAAA",
			neutralized: []string{},
		},
		{
			name:        "mentions before urls",
			input:       "javascript:x @all",
			want:        "javascript\u200b:x @\u200ball",
			modified:    true,
			neutralized: []string{"@all", "javascript:"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.Sanitize(tt.input)
			if got.Text != tt.want {
				t.Errorf("Text = %q, want %q", got.Text, tt.want)
			}
			if got.Modified != tt.modified {
				t.Errorf("Modified = %v, want %v", got.Modified, tt.modified)
			}
			if !reflect.DeepEqual(got.Neutralized, tt.neutralized) {
				t.Errorf("Neutralized = %v, want %v", got.Neutralized, tt.neutralized)
			}
		})
	}
}

func TestSanitize_RemovesLiteralMention(t *testing.T) {
	got := MustNew(DefaultConfig()).Sanitize("Hello @all!")
	if strings.Contains(got.Text, "@all") {
		t.Errorf("Text %q still contains @all", got.Text)
	}
}

func TestSanitize_Idempotent(t *testing.T) {
	s := MustNew(DefaultConfig())
	inputs := []string{
		"",
		"Hello @all!",
		"@HERE @channel @everyone @all",
		"javascript:alert(1) data:text/html,<b>",
		"line one @all\nline two javascript:\r\nline three",
		"@@all",
	}
	for _, in := range inputs {
		first := s.Sanitize(in)
		second := s.Sanitize(first.Text)
		if second.Modified || second.Text != first.Text {
			t.Errorf("Sanitize(%q) not idempotent: %q -> %q", in, first.Text, second.Text)
		}
	}
}

func TestSanitize_PreservesLineBreaks(t *testing.T) {
	in := "@all\n@here\r\njavascript:\n\n"
	out := MustNew(DefaultConfig()).Sanitize(in).Text
	if strings.Count(out, "\n") != strings.Count(in, "\n") {
		t.Errorf("line breaks changed: %q -> %q", in, out)
	}
}

func TestSanitize_Config(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{
			name: "blocking off keeps mentions but not urls",
			cfg:  Config{BlockMentions: false},
			want: "@all @here javascript\u200b:",
		},
		{
			name: "block list narrows rules",
			cfg:  Config{BlockMentions: true, BlockedMentions: []string{"@here"}},
			want: "@all @\u200bhere javascript\u200b:",
		},
		{
			name: "block list names are normalized",
			cfg:  Config{BlockMentions: true, BlockedMentions: []string{"ALL"}},
			want: "@\u200ball @here javascript\u200b:",
		},
		{
			name: "block list ignored when blocking off",
			cfg:  Config{BlockMentions: false, BlockedMentions: []string{"@all"}},
			want: "@all @here javascript\u200b:",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MustNew(tt.cfg).Sanitize("@all @here javascript:").Text
			if got != tt.want {
				t.Errorf("Text = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNew_UnknownMention(t *testing.T) {
	_, err := New(Config{BlockMentions: true, BlockedMentions: []string{"@nobody"}})
	if !errors.Is(err, ErrUnknownMention) {
		t.Fatalf("New() error = %v, want ErrUnknownMention", err)
	}
	defer func() {
		if recover() == nil {
			t.Error("MustNew() did not panic")
		}
	}()
	MustNew(Config{BlockedMentions: []string{"@nobody"}})
}

func TestCheck(t *testing.T) {
	// Check ignores configuration.
	s := MustNew(Config{BlockMentions: false})

	got := s.Check("@all please see javascript:void(0)")
	if !got.HasDangerousPatterns {
		t.Fatal("HasDangerousPatterns = false")
	}
	if want := []string{"@all", "javascript:"}; !reflect.DeepEqual(got.Patterns, want) {
		t.Errorf("Patterns = %v, want %v", got.Patterns, want)
	}

	clean := s.Check("nothing to see")
	if clean.HasDangerousPatterns || len(clean.Patterns) != 0 {
		t.Errorf("Check(clean) = %+v", clean)
	}

	neutral := s.Check(MustNew(DefaultConfig()).Sanitize("@all javascript:").Text)
	if neutral.HasDangerousPatterns {
		t.Errorf("neutralized text still flagged: %v", neutral.Patterns)
	}
}

func TestConfig_ReturnsCopy(t *testing.T) {
	s := MustNew(Config{BlockMentions: true, BlockedMentions: []string{"@all"}})
	cfg := s.Config()
	cfg.BlockedMentions[0] = "@here"

	if got := s.Config().BlockedMentions[0]; got != "@all" {
		t.Errorf("internal config mutated: %q", got)
	}
}

func TestActiveRules(t *testing.T) {
	got := MustNew(Config{BlockMentions: true, BlockedMentions: []string{"@channel"}}).ActiveRules()
	want := []string{"@channel", "javascript:", "data:"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ActiveRules() = %v, want %v", got, want)
	}
}

func TestSanitize_Concurrent(t *testing.T) {
	s := MustNew(DefaultConfig())
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if got := s.Sanitize("ping @here"); got.Text != "ping @\u200bhere" {
					t.Errorf("Text = %q", got.Text)
					return
				}
			}
		}()
	}
	wg.Wait()
}
