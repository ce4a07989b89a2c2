package dto

// SocialSearchResponse is a page of recent-search results.
type SocialSearchResponse struct {
	Data     []SocialPost        `json:"data"`
	Includes SocialIncludes      `json:"includes"`
	Meta     SocialSearchMeta    `json:"meta"`
	Errors   []SocialSearchError `json:"errors,omitempty"`
}

type SocialPost struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	AuthorID  string `json:"author_id"`
	CreatedAt string `json:"created_at"`
}

type SocialIncludes struct {
	Users []SocialUser `json:"users"`
}

type SocialUser struct {
	ID            string            `json:"id"`
	Username      string            `json:"username"`
	PublicMetrics SocialUserMetrics `json:"public_metrics"`
}

type SocialUserMetrics struct {
	FollowersCount int `json:"followers_count"`
}

type SocialSearchMeta struct {
	ResultCount int    `json:"result_count"`
	NextToken   string `json:"next_token,omitempty"`
}

type SocialSearchError struct {
	Title  string `json:"title"`
	Detail string `json:"detail"`
}
