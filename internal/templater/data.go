package templater

// Variant names a template shape. Each variant has its own template file and
// field table.
type Variant string

const (
	VariantArticle  Variant = "article"
	VariantBlogPage Variant = "blog_page"
	VariantBlogPost Variant = "blog_post"
)

// Data is the value bound to a template.
type Data interface {
	Variant() Variant
	// Lookup returns the value of a lower-cased field name.
	Lookup(name string) (string, bool)
}

// Base carries the fields every page has.
type Base struct {
	SiteTitle     string
	AbsSiteLink   string
	RelSiteLink   string
	FwdPageLink   string
	RelBannerLink string
	CSS           string
	GAUid         string
	PageTitle     string
	RelPageLink   string
	Description   string
	GenInfo       string
}

var baseFields = map[string]func(*Base) string{
	"sitetitle":     func(d *Base) string { return d.SiteTitle },
	"abssitelink":   func(d *Base) string { return d.AbsSiteLink },
	"relsitelink":   func(d *Base) string { return d.RelSiteLink },
	"fwdpagelink":   func(d *Base) string { return d.FwdPageLink },
	"relbannerlink": func(d *Base) string { return d.RelBannerLink },
	"css":           func(d *Base) string { return d.CSS },
	"gauid":         func(d *Base) string { return d.GAUid },
	"pagetitle":     func(d *Base) string { return d.PageTitle },
	"relpagelink":   func(d *Base) string { return d.RelPageLink },
	"description":   func(d *Base) string { return d.Description },
	"geninfo":       func(d *Base) string { return d.GenInfo },
}

// Lookup implements Data.
func (d *Base) Lookup(name string) (string, bool) {
	if f, ok := baseFields[name]; ok {
		return f(d), true
	}
	return "", false
}

// Article is a standalone page.
type Article struct {
	Base
	Content      string
	RelImageLink string
}

var articleFields = map[string]func(*Article) string{
	"content":       func(d *Article) string { return d.Content },
	"sourcecontent": func(d *Article) string { return d.Content },
	"relimagelink":  func(d *Article) string { return d.RelImageLink },
}

// Variant implements Data.
func (d *Article) Variant() Variant { return VariantArticle }

// Lookup implements Data.
func (d *Article) Lookup(name string) (string, bool) {
	if f, ok := articleFields[name]; ok {
		return f(d), true
	}
	return d.Base.Lookup(name)
}

// BlogPage is a listing page or a full post page.
type BlogPage struct {
	Article
	RelPrevPageLink string
	RelNextPageLink string
	BlogHeader      string
	PostTitle       string
	PostDate        string
	PostCategory    string
	RelPostCatLink  string
}

var blogPageFields = map[string]func(*BlogPage) string{
	"relprevpagelink": func(d *BlogPage) string { return d.RelPrevPageLink },
	"relnextpagelink": func(d *BlogPage) string { return d.RelNextPageLink },
	"blogheader":      func(d *BlogPage) string { return d.BlogHeader },
	"posttitle":       func(d *BlogPage) string { return d.PostTitle },
	"postdate":        func(d *BlogPage) string { return d.PostDate },
	"postcategory":    func(d *BlogPage) string { return d.PostCategory },
	"relpostcatlink":  func(d *BlogPage) string { return d.RelPostCatLink },
}

// Variant implements Data.
func (d *BlogPage) Variant() Variant { return VariantBlogPage }

// Lookup implements Data.
func (d *BlogPage) Lookup(name string) (string, bool) {
	if f, ok := blogPageFields[name]; ok {
		return f(d), true
	}
	return d.Article.Lookup(name)
}

// BlogPost is one post rendered inside a listing page.
type BlogPost struct {
	BlogPage
	RelPostFullLink  string
	RelPostExtraLink string
}

var blogPostFields = map[string]func(*BlogPost) string{
	"relpostfulllink":  func(d *BlogPost) string { return d.RelPostFullLink },
	"relpostextralink": func(d *BlogPost) string { return d.RelPostExtraLink },
}

// Variant implements Data.
func (d *BlogPost) Variant() Variant { return VariantBlogPost }

// Lookup implements Data.
func (d *BlogPost) Lookup(name string) (string, bool) {
	if f, ok := blogPostFields[name]; ok {
		return f(d), true
	}
	return d.BlogPage.Lookup(name)
}
