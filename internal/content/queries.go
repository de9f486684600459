package content

// Projections map CMS documents onto domain.CatalogItem / domain.CategoryFacet JSON.
const (
	itemProjection = `{
  "id": _id,
  title,
  "description": coalesce(description, ""),
  "categoryKey": coalesce(category->slug.current, ""),
  "formatKey": coalesce(format, ""),
  "tags": coalesce(tags, []),
  "isPremium": coalesce(isPremium, false),
  "priceCents": priceCents,
  "ratingValue": coalesce(rating, 0),
  "downloadCount": coalesce(downloadCount, 0),
  "previewAssetRef": previewImage.asset->url,
  "downloadAssetRef": coalesce(file.asset->url, "")
}`

	facetProjection = `{
  "key": slug.current,
  "displayName": title,
  "sortOrder": coalesce(sortOrder, 0)
}`

	templatesQuery = `*[_type == "template" && !(_id in path("drafts.**"))] | order(_createdAt desc) ` + itemProjection

	templateByIDQuery = `*[_type == "template" && _id == $id][0] ` + itemProjection

	templateCategoriesQuery = `*[_type == "templateCategory"] | order(sortOrder asc) ` + facetProjection

	productsQuery = `*[_type == "product" && ($category == "" || category->slug.current == $category)] | order(title asc) ` + itemProjection

	productCategoriesQuery = `*[_type == "productCategory"] | order(sortOrder asc) ` + facetProjection
)

// DownloadCountField is the document field patched on every download.
const DownloadCountField = "downloadCount"
