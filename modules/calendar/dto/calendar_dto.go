package dto

type ConnectGoogleRequest struct {
	Code  string `json:"code"`
	State string `json:"state"`
}

type AuthURLResponse struct {
	URL string `json:"url"`
}

type CalendarConnectionResponse struct {
	ID            string `json:"id"`
	Provider      string `json:"provider"`
	CalendarEmail string `json:"calendar_email"`
	IsActive      bool   `json:"is_active"`
	ConnectedAt   string `json:"connected_at"`
}
