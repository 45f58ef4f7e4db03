package models

// User 本地持有的用户身份（从登录响应或 token 声明尽力解出）
type User struct {
	UserID   uint   `json:"userId,omitempty"`
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
	Role     string `json:"role,omitempty"`
}
