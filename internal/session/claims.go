package session

import (
	"github.com/ynhind/open-library-client/internal/models"

	"github.com/golang-jwt/jwt/v5"
)

// tokenClaims 后端 token 中客户端关心的声明
type tokenClaims struct {
	UserID   uint   `json:"userId"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// DecodeUser 尽力从 token 声明解出用户身份。
// 不校验签名（密钥在服务端），仅用于本地展示；解不出返回 nil。
func DecodeUser(token string) *models.User {
	parser := jwt.NewParser()
	claims := &tokenClaims{}
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return nil
	}
	user := &models.User{
		UserID:   claims.UserID,
		Username: claims.Username,
		Email:    claims.Email,
		Role:     claims.Role,
	}
	if user.Username == "" && claims.Subject != "" {
		user.Username = claims.Subject
	}
	if user.UserID == 0 && user.Username == "" && user.Email == "" {
		return nil
	}
	return user
}
