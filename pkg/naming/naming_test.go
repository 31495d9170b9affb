package naming

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{`a<b>c:d"e/f\g|h?i*j`, 50, "a_b_c_d_e_f_g_h_i_j"},
		{"line one\nline two", 50, "line one_line two"},
		{"  padded.  ", 50, "padded"},
		{"日常vlog #旅行 記錄", 4, "日常vl"},
		{"", 50, ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Sanitize(tt.in, tt.max), tt.in)
	}
}

func TestSanitizeIsRuneSafe(t *testing.T) {
	long := strings.Repeat("抖音", 40)
	got := Sanitize(long, DefaultMaxRunes)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, DefaultMaxRunes, utf8.RuneCountInString(got))
}

func TestCleanText(t *testing.T) {
	assert.Equal(t, "Tom & Jerry part 2", CleanText("<span>Tom &amp; <b>Jerry</b></span>\n  part 2"))
	assert.Equal(t, "", CleanText("<img src=x>"))
}

func TestForAweme(t *testing.T) {
	assert.Equal(t, "7301234_去海邊玩 _ day1.mp4", ForAweme("7301234", "去海邊玩 / day1", 50))
	assert.Equal(t, "unknown_無標題.mp4", ForAweme("", "", 50))
	assert.Equal(t, "42_無標題.mp4", ForAweme("42", "<br>", 50))
}

func TestForIndexed(t *testing.T) {
	assert.Equal(t, "001_morning run.mp4", ForIndexed(1, "morning run", 50))
	assert.Equal(t, "012_video_12.mp4", ForIndexed(12, "  ", 50))
	assert.Equal(t, "003_a_b.mp4", ForIndexed(3, "a?b", 50))
}

func TestFromURL(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://v26.douyinvod.com/abc/def/v0200fg10000.mp4?a=1", "v0200fg10000.mp4"},
		{"https://v3-web.douyinvod.com/video/tos/cn/tos-cn-ve-15/oQhd/", "oQhd.mp4"},
		{"https://www.douyin.com/aweme/v1/play/?video_id=v0300", "play.mp4"},
		{"https://cdn.example.com/", "video_7.mp4"},
		{"https://cdn.example.com/clip%20one.MP4", "clip one.MP4"},
		{"::not a url", "video_7.mp4"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FromURL(tt.url, "video_7"), tt.url)
	}
}

func TestUnique(t *testing.T) {
	taken := map[string]bool{"clip.mp4": true, "clip_1.mp4": true}
	isTaken := func(n string) bool { return taken[n] }

	assert.Equal(t, "other.mp4", Unique("other.mp4", isTaken))
	assert.Equal(t, "clip_2.mp4", Unique("clip.mp4", isTaken))
}
