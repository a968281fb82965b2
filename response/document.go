package response

import "time"

type DownloadLinkResponse struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type InitializePromptsResponse struct {
	Created int `json:"created"`
}

type HealthResponse struct {
	Status string `json:"status"`
}
