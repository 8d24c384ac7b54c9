package model

type User struct {
	ID           string `json:"id"`
	Username     string `json:"username"`
	PasswordHash string `json:"-"`
	Email        string `json:"email,omitempty"`
	Name         string `json:"name,omitempty"`
	Ctime        int64  `json:"ctime"`
}
