package models

// URLRecord is a stored short URL: the short code, the long URL it redirects to
// and the ID of the user who owns it.
type URLRecord struct {
	ShortURL string `json:"shortURL"`
	LongURL  string `json:"longURL"`
	UserID   string `json:"userID"`
}

// URLMap maps short codes to their records.
type URLMap map[string]URLRecord

// CredentialsForm is the body of the register and login forms.
type CredentialsForm struct {
	Email    string `validate:"required"`
	Password string `validate:"required"`
}

// LongURLForm is the body of the create and update URL forms.
type LongURLForm struct {
	LongURL string `validate:"required"`
}

type InternalStatsResponse struct {
	URLs  int64 `json:"urls"`
	Users int64 `json:"users"`
}

const (
	StorageTypeUnknown = iota
	StorageTypePostgresql
	StorageTypeFile
	StorageTypeMemory
)
