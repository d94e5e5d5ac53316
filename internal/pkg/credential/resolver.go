package credential

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/qs3c/cafe_sub_server/internal/pkg/apperr"
)

// 角色
const (
	RoleCustomer = "customer"
	RoleStaff    = "staff"
	RoleBarista  = "barista"
)

const (
	claimRoleURI    = "http://schemas.microsoft.com/ws/2008/06/identity/claims/role"
	claimSubjectURI = "http://schemas.xmlsoap.org/ws/2005/05/identity/claims/nameidentifier"
	claimNameURI    = "http://schemas.xmlsoap.org/ws/2005/05/identity/claims/name"
	claimPhoneURI   = "http://schemas.xmlsoap.org/ws/2005/05/identity/claims/mobilephone"
)

// ErrDecode 令牌载荷无法解析，调用方应按匿名用户处理
var ErrDecode = apperr.New(apperr.ErrDecode, "无法解析令牌")

// 各字段按优先级依次查找的声明名
var (
	subjectClaims = []string{"sub", "nameid", claimSubjectURI}
	nameClaims    = []string{"name", "unique_name", claimNameURI}
	phoneClaims   = []string{"phone", "phone_number", claimPhoneURI}
)

// Identity 从令牌声明中提取出的调用方身份
type Identity struct {
	SubjectID   string `json:"subject_id"`
	Role        string `json:"role"`
	DisplayName string `json:"display_name,omitempty"`
	Phone       string `json:"phone,omitempty"`
}

// Anonymous 未认证身份
func Anonymous() Identity {
	return Identity{}
}

// IsAnonymous 没有主体 ID 的身份视为匿名
func (i Identity) IsAnonymous() bool {
	return i.SubjectID == ""
}

// HasRole 判断身份是否属于给定角色之一
func (i Identity) HasRole(roles ...string) bool {
	for _, r := range roles {
		if i.Role == r {
			return true
		}
	}
	return false
}

// IsStaff 门店员工（staff 或 barista）
func (i Identity) IsStaff() bool {
	return i.HasRole(RoleStaff, RoleBarista)
}

// Resolve 解码令牌载荷段并提取身份，不做签名校验
func Resolve(token string) (Identity, error) {
	claims, err := DecodeClaims(token)
	if err != nil {
		return Identity{}, err
	}
	return FromClaims(claims), nil
}

// ResolveOrAnonymous 解析失败时降级为匿名身份
func ResolveOrAnonymous(token string) Identity {
	id, err := Resolve(token)
	if err != nil {
		return Anonymous()
	}
	return id
}

// DecodeClaims 解码三段式令牌的中间段
func DecodeClaims(token string) (jwt.MapClaims, error) {
	parts := strings.Split(strings.TrimSpace(token), ".")
	if len(parts) < 2 || parts[1] == "" {
		return nil, fmt.Errorf("%w: missing payload segment", ErrDecode)
	}

	payload, err := decodeSegment(parts[1])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	var claims jwt.MapClaims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if claims == nil {
		return nil, fmt.Errorf("%w: empty payload", ErrDecode)
	}
	return claims, nil
}

// FromClaims 按优先级从声明中提取各字段
func FromClaims(claims jwt.MapClaims) Identity {
	return Identity{
		SubjectID:   firstString(claims, subjectClaims),
		Role:        strings.ToLower(roleOf(claims)),
		DisplayName: firstString(claims, nameClaims),
		Phone:       firstString(claims, phoneClaims),
	}
}

// decodeSegment 将 base64url 转为标准字母表并补齐填充后解码
func decodeSegment(seg string) ([]byte, error) {
	s := strings.NewReplacer("-", "+", "_", "/").Replace(seg)
	if m := len(s) % 4; m != 0 {
		s += strings.Repeat("=", 4-m)
	}
	return base64.StdEncoding.DecodeString(s)
}

func roleOf(claims jwt.MapClaims) string {
	if r := stringOf(claims["role"]); r != "" {
		return r
	}
	if roles, ok := claims["roles"].([]interface{}); ok && len(roles) > 0 {
		if r := stringOf(roles[0]); r != "" {
			return r
		}
	}
	// 部分签发方把 role 声明序列化成数组
	if roles, ok := claims[claimRoleURI].([]interface{}); ok && len(roles) > 0 {
		return stringOf(roles[0])
	}
	return stringOf(claims[claimRoleURI])
}

func firstString(claims jwt.MapClaims, keys []string) string {
	for _, k := range keys {
		if v := stringOf(claims[k]); v != "" {
			return v
		}
	}
	return ""
}

func stringOf(v interface{}) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case json.Number:
		return val.String()
	default:
		return ""
	}
}
