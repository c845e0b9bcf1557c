package usecases

import (
	"context"
	"errors"
	"testing"

	"github.com/sglre6355/tunebot/internal/modules/music_player/application/ports"
)

func TestStreamResolver_ResolveNew(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		setup     func(*mockMediaProvider)
		wantErr   error
		wantTitle string
	}{
		{
			name:  "search term",
			input: "  never gonna  ",
			setup: func(m *mockMediaProvider) {
				m.infos["never gonna"] = mockInfo("abc")
			},
			wantTitle: "Song abc",
		},
		{
			name:  "watch url with list parameter is a single video",
			input: "https://www.youtube.com/watch?v=abc&list=PL1",
			setup: func(m *mockMediaProvider) {
				m.infos["https://www.youtube.com/watch?v=abc&list=PL1"] = mockInfo("abc")
			},
			wantTitle: "Song abc",
		},
		{
			name:    "empty input",
			input:   "   ",
			wantErr: ErrInvalidReference,
		},
		{
			name:    "playlist url",
			input:   "https://www.youtube.com/playlist?list=PL1",
			wantErr: ErrPlaylistsUnsupported,
		},
		{
			name:  "provider reports playlist",
			input: "https://music.example.com/set/1",
			setup: func(m *mockMediaProvider) {
				m.errs["https://music.example.com/set/1"] = ports.ErrPlaylistReference
			},
			wantErr: ErrPlaylistsUnsupported,
		},
		{
			name:    "no results",
			input:   "zzzz",
			wantErr: ErrNoResultsFound,
		},
		{
			name:  "restricted",
			input: "https://www.youtube.com/watch?v=private",
			setup: func(m *mockMediaProvider) {
				m.errs["https://www.youtube.com/watch?v=private"] = ports.ErrMediaRestricted
			},
			wantErr: ErrPrivateOrRestrictedMedia,
		},
		{
			name:  "unexpected provider failure",
			input: "boom",
			setup: func(m *mockMediaProvider) {
				m.errs["boom"] = errors.New("exit status 1")
			},
			wantErr: ErrResolveFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := newMockMediaProvider()
			if tt.setup != nil {
				tt.setup(provider)
			}
			resolver := NewStreamResolver(provider)

			song, err := resolver.ResolveNew(context.Background(), tt.input)

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("expected error %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if song.Title != tt.wantTitle {
				t.Errorf("expected title %q, got %q", tt.wantTitle, song.Title)
			}
			if song.WebpageRef == "" {
				t.Error("expected webpage reference to be set")
			}
		})
	}
}

func TestStreamResolver_ResolveNew_FallsBackToInputURL(t *testing.T) {
	provider := newMockMediaProvider()
	info := mockInfo("abc")
	info.WebpageURL = ""
	provider.infos["https://youtu.be/abc"] = info

	song, err := NewStreamResolver(provider).ResolveNew(context.Background(), "https://youtu.be/abc")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if song.WebpageRef != "https://youtu.be/abc" {
		t.Errorf("expected input URL as webpage reference, got %q", song.WebpageRef)
	}
}

func TestStreamResolver_RefreshStreamRef(t *testing.T) {
	provider := newMockMediaProvider()
	provider.add("a")
	provider.errs["https://www.youtube.com/watch?v=gone"] = ports.ErrMediaNotFound
	resolver := NewStreamResolver(provider)

	ref, ok := resolver.RefreshStreamRef(context.Background(), mockSong("a").WebpageRef)
	if !ok || ref != "stream-a" {
		t.Errorf("expected stream-a, got %q (ok=%v)", ref, ok)
	}

	if _, ok := resolver.RefreshStreamRef(context.Background(), "https://www.youtube.com/watch?v=gone"); ok {
		t.Error("expected refresh of a removed video to fail")
	}
}
