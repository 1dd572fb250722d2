package dto

type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

type SuccessResponse struct {
	OK   bool `json:"ok"`
	Data any  `json:"data,omitempty"`
}

// List builds the data of a list response: the total number of matches
// plus the page of items under the collection's api name.
func List(apiName string, total int, items any) map[string]any {
	return map[string]any{
		"totalResults": total,
		apiName:        items,
	}
}

type CountResponse struct {
	Count int64 `json:"count"`
}

type MeResponse struct {
	UserID      string   `json:"userId"`
	Role        string   `json:"role"`
	Permissions []string `json:"permissions"`
}

type StaticDataItem struct {
	ID    int    `json:"id"`
	Label string `json:"label"`
}
