package dto

// GDELTResponse is the ArtList payload of the document search API.
type GDELTResponse struct {
	Articles []GDELTArticle `json:"articles"`
}

type GDELTArticle struct {
	URL           string `json:"url"`
	Title         string `json:"title"`
	SeenDate      string `json:"seendate"`
	Domain        string `json:"domain"`
	Language      string `json:"language"`
	SourceCountry string `json:"sourcecountry"`
}
