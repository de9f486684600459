package domain

// CatalogItem is a downloadable template or an orderable product.
type CatalogItem struct {
	ID               string   `json:"id"`
	Title            string   `json:"title"`
	Description      string   `json:"description"`
	CategoryKey      string   `json:"categoryKey"`
	FormatKey        string   `json:"formatKey"`
	Tags             []string `json:"tags"`
	IsPremium        bool     `json:"isPremium"`
	PriceCents       *int     `json:"priceCents,omitempty"`
	RatingValue      float64  `json:"ratingValue"`
	DownloadCount    int      `json:"downloadCount"`
	PreviewAssetRef  string   `json:"previewAssetRef,omitempty"`
	DownloadAssetRef string   `json:"downloadAssetRef"`

	// Pending is set when DownloadCount includes increments not yet committed remotely.
	Pending bool `json:"pending,omitempty"`
}

// CategoryFacet is a category value used to filter the catalog.
type CategoryFacet struct {
	Key         string `json:"key"`
	DisplayName string `json:"displayName"`
	SortOrder   int    `json:"sortOrder"`
}

const (
	AllCategories = "all"
	AllFormats    = "All Formats"
)
