package blog

import (
	"strings"

	"git.home.luguber.info/inful/izupress/internal/config"
	"git.home.luguber.info/inful/izupress/internal/markers"
)

// Site is the configuration shared by the blogs generated from one group of index
// entries. Documents of the group may override it with header tags.
type Site struct {
	Number        int
	AcceptCat     *CatFilter
	RejectCat     *CatFilter
	GenSingle     *CatFilter
	GenMixed      *CatFilter
	BannerExclude *CatFilter
	MixedCat      string
}

// NewSite builds a site from the configured defaults.
func NewSite(number int, cfg config.BlogConfig) (*Site, error) {
	s := &Site{Number: number, MixedCat: strings.TrimSpace(cfg.MixedCat)}
	for _, f := range []struct {
		dst  **CatFilter
		spec string
	}{
		{&s.AcceptCat, cfg.AcceptCat},
		{&s.RejectCat, cfg.RejectCat},
		{&s.GenSingle, cfg.GenSingle},
		{&s.GenMixed, cfg.GenMixed},
		{&s.BannerExclude, cfg.BannerExclude},
	} {
		filter, err := ParseCatFilter(f.spec)
		if err != nil {
			return nil, err
		}
		*f.dst = filter
	}
	if s.MixedCat == "" {
		s.MixedCat = "all"
	}
	if err := CheckCategory(s.MixedCat); err != nil {
		return nil, err
	}
	return s, nil
}

// UpdateFrom applies the blog configuration tags found in a document header. Tags
// with an empty value are ignored.
func (s *Site) UpdateFrom(tags []string) error {
	for _, tag := range tags {
		if value, ok := tagValue(tag, markers.BlogMixedCat); ok {
			if err := CheckCategory(value); err != nil {
				return err
			}
			s.MixedCat = value
			continue
		}
		for _, f := range []struct {
			dst    **CatFilter
			prefix string
		}{
			{&s.AcceptCat, markers.BlogAcceptCat},
			{&s.RejectCat, markers.BlogRejectCat},
			{&s.GenSingle, markers.BlogGenSingle},
			{&s.GenMixed, markers.BlogGenMixed},
			{&s.BannerExclude, markers.BlogBannerEx},
		} {
			value, ok := tagValue(tag, f.prefix)
			if !ok {
				continue
			}
			filter, err := ParseCatFilter(value)
			if err != nil {
				return err
			}
			*f.dst = filter
			break
		}
	}
	return nil
}

// Accepts reports whether category passes the accept and reject filters.
func (s *Site) Accepts(category string) bool {
	return s.AcceptCat.Matches(category) && !s.RejectCat.Matches(category)
}

func tagValue(tag, prefix string) (string, bool) {
	if !strings.HasPrefix(tag, prefix) {
		return "", false
	}
	value := strings.TrimSpace(tag[len(prefix):])
	return value, value != ""
}
