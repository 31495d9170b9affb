package douyin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractSecUserID(t *testing.T) {
	id, err := ExtractSecUserID("https://www.douyin.com/user/MS4wLjABAAAA_x-Y?from_tab_name=main")
	require.NoError(t, err)
	assert.Equal(t, "MS4wLjABAAAA_x-Y", id)

	id, err = ExtractSecUserID("https://www.douyin.com/user/abc/")
	require.NoError(t, err)
	assert.Equal(t, "abc", id)

	_, err = ExtractSecUserID("https://www.douyin.com/discover")
	assert.ErrorIs(t, err, ErrNoSecUserID)
}

func TestProfileKey(t *testing.T) {
	assert.Equal(t, "abc", ProfileKey("https://www.douyin.com/user/abc?x=1"))
	assert.Equal(t, "www.douyin.com_discover_hot", ProfileKey("https://www.douyin.com/discover/hot"))
}

func TestURLFilters(t *testing.T) {
	assert.True(t, IsAwemeAPI("https://www.douyin.com/aweme/v1/web/aweme/post/?sec_user_id=x"))
	assert.False(t, IsAwemeAPI("https://www.douyin.com/user/x"))

	assert.True(t, IsPageVideo("https://v3-web.douyinvod.com/abc/video/tos/x"))
	assert.False(t, IsPageVideo("https://p3.douyinpic.com/img/x.jpeg"))
}

func TestIsHoverVideo(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		{"https://v26-web.douyinvod.com/video/tos/cn/x.mp4", true},
		{"https://v3-dy-o.zjcdn.com/abc/video/tos/cn/x.MOV", true},
		{"https://v3-dy-o.zjcdn.com/abc/?mime_type=video_mp4&qs=0", true},
		{"https://v26-web.douyinvod.com/video/tos/cn/x.m3u8", false},
		{"https://example.com/video/x.mp4", false},
		{"https://douyin.com.evil.net/video/x.mp4", false},
		{"https://lf-cdn.bytedance.com/static/a.mp4", false},
		{"::not a url", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsHoverVideo(tt.url), tt.url)
	}
}

func TestAbsoluteURL(t *testing.T) {
	assert.Equal(t, "https://www.douyin.com/video/123", AbsoluteURL("/video/123"))
	assert.Equal(t, "https://www.douyin.com/video/123", AbsoluteURL("video/123"))
	assert.Equal(t, "https://www.douyin.com/video/123", AbsoluteURL("//www.douyin.com/video/123"))
	assert.Equal(t, "http://x.test/a", AbsoluteURL("http://x.test/a"))
	assert.Equal(t, "", AbsoluteURL("  "))
}
