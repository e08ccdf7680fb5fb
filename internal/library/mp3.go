package library

import (
	"strconv"
	"strings"

	"github.com/bogem/id3v2/v2"
)

// readMP3Frames fills what dhowden/tag missed from the ID3v2 frames
// directly, and takes the TLEN frame (milliseconds) as a duration hint.
func readMP3Frames(path string, t *Track) {
	id3tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return
	}
	defer id3tag.Close()

	if t.Artist == "" {
		t.Artist = strings.TrimSpace(id3tag.Artist())
	}
	if t.Title == "" {
		t.Title = strings.TrimSpace(id3tag.Title())
	}
	if ms, err := strconv.Atoi(strings.TrimSpace(textFrame(id3tag, "TLEN"))); err == nil && ms > 0 {
		t.Duration = ms / 100
	}
}

func textFrame(id3tag *id3v2.Tag, id string) string {
	frames := id3tag.GetFrames(id)
	if len(frames) == 0 {
		return ""
	}
	if tf, ok := frames[0].(id3v2.TextFrame); ok {
		return tf.Text
	}
	return ""
}
