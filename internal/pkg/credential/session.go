package credential

// Session 一次调用的认证上下文，由传输层显式传入各服务
type Session struct {
	Identity Identity
	Token    string
}

// NewSession 从原始令牌构建会话，解析失败时为匿名会话
func NewSession(token string) Session {
	return Session{
		Identity: ResolveOrAnonymous(token),
		Token:    token,
	}
}

// CustomerID 客户会话的主体 ID，非客户或匿名返回 false。
// 客户登录签发的令牌可能不带角色声明，空角色按客户处理。
func (s Session) CustomerID() (string, bool) {
	if s.Identity.IsAnonymous() || !s.Identity.HasRole(RoleCustomer, "") {
		return "", false
	}
	return s.Identity.SubjectID, true
}
