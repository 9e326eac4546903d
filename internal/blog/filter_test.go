package blog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/izupress/internal/config"
	ferrors "git.home.luguber.info/inful/izupress/internal/foundation/errors"
	"git.home.luguber.info/inful/izupress/internal/markers"
)

func TestCatFilterMatchesWholeCategory(t *testing.T) {
	f, err := ParseCatFilter("news, dev.* # everything else is private")
	require.NoError(t, err)

	assert.True(t, f.Matches("news"))
	assert.True(t, f.Matches(" News "))
	assert.True(t, f.Matches("devlog"))
	assert.False(t, f.Matches("breaking-news"))
	assert.False(t, f.Matches("private"))
	assert.False(t, f.Matches(""))
	// cached result
	assert.True(t, f.Matches("devlog"))
}

func TestCatFilterEmpty(t *testing.T) {
	for _, spec := range []string{"", "  ", "# disabled", " , ,"} {
		f, err := ParseCatFilter(spec)
		require.NoError(t, err, spec)
		assert.True(t, f.Empty(), spec)
		assert.False(t, f.Matches("anything"), spec)
	}
}

func TestCatFilterInvalidExpression(t *testing.T) {
	_, err := ParseCatFilter("ok, (broken")
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryConfig))
	assert.Panics(t, func() { MustCatFilter("[") })
}

func testSite(t *testing.T) *Site {
	t.Helper()
	site, err := NewSite(0, config.BlogConfig{
		AcceptCat: ".*",
		GenSingle: ".*",
		GenMixed:  ".*",
	})
	require.NoError(t, err)
	return site
}

func TestNewSiteDefaults(t *testing.T) {
	site := testSite(t)
	assert.Equal(t, "all", site.MixedCat)
	assert.True(t, site.Accepts("news"))
	assert.True(t, site.RejectCat.Empty())
	assert.False(t, site.BannerExclude.Matches("news"))

	_, err := NewSite(1, config.BlogConfig{AcceptCat: "("})
	assert.Error(t, err)
}

func TestSiteUpdateFromHeaderTags(t *testing.T) {
	site := testSite(t)
	err := site.UpdateFrom([]string{
		markers.Blog,
		markers.BlogRejectCat + "private",
		markers.BlogMixedCat + "everything",
		markers.BlogGenSingle + "news",
		markers.BlogBannerEx + "photos",
		markers.BlogAcceptCat,
	})
	require.NoError(t, err)

	assert.Equal(t, "everything", site.MixedCat)
	assert.False(t, site.Accepts("private"))
	assert.True(t, site.Accepts("news"))
	assert.True(t, site.GenSingle.Matches("news"))
	assert.False(t, site.GenSingle.Matches("photos"))
	assert.True(t, site.BannerExclude.Matches("photos"))
	// empty values keep the previous filter
	assert.Equal(t, ".*", site.AcceptCat.String())

	assert.Error(t, site.UpdateFrom([]string{markers.BlogGenMixed + "a)"}))
}

func TestLabel(t *testing.T) {
	assert.Equal(t, "DIY", Label("diy"))
	assert.Equal(t, "Travel", Label("travel"))
	assert.Equal(t, "Go", Label("go"))
}
