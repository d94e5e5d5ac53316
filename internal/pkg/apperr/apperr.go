package apperr

import (
	"errors"
	"fmt"
)

// 错误分类
var (
	ErrValidation   = errors.New("validation error")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrTransient    = errors.New("transient error")
	ErrDecode       = errors.New("decode error")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
)

// Error 带分类的业务错误，errors.Is 同时匹配自身和所属分类
type Error struct {
	category error
	msg      string
}

// New 创建属于 category 的业务错误
func New(category error, msg string) *Error {
	return &Error{category: category, msg: msg}
}

func (e *Error) Error() string {
	return e.msg
}

func (e *Error) Unwrap() error {
	return e.category
}

// Category 返回错误所属分类
func (e *Error) Category() error {
	return e.category
}

// 业务错误
var (
	ErrPlanUnavailable         = New(ErrNotFound, "套餐不存在或已下架")
	ErrUnauthenticated         = New(ErrUnauthorized, "请先登录")
	ErrCustomerUnauthenticated = New(ErrUnauthorized, "请先登录客户账号")
	ErrStaffOnly               = New(ErrForbidden, "仅限门店员工操作")
	ErrQuotaExceeded           = New(ErrConflict, "今日额度已用完")
	ErrOrderAlreadySettled     = New(ErrConflict, "订单已完成支付")
	ErrOrderExpired            = New(ErrConflict, "订单已过期")
	ErrOrderNotFound           = New(ErrNotFound, "订单不存在")
	ErrSubscriptionNotFound    = New(ErrNotFound, "订阅不存在")
	ErrSubscriptionNotActive   = New(ErrNotFound, "订阅未激活或已过期")
	ErrNoActiveSubscription    = New(ErrNotFound, "该手机号没有有效套餐")
	ErrCustomerNotFound        = New(ErrNotFound, "客户不存在")
	ErrNotificationNotFound    = New(ErrNotFound, "通知不存在")
	ErrInvalidQuantity         = New(ErrValidation, "兑换数量至少为 1 杯")
	ErrQuantityOverLimit       = New(ErrValidation, "兑换数量超出单次上限")
	ErrAmountMismatch          = New(ErrValidation, "转账金额不足")
	ErrMissingReference        = New(ErrValidation, "转账备注中未找到订单号")
	ErrInvalidPayload          = New(ErrDecode, "二维码内容无效")
)

// Wrap 给底层错误附加分类，保留原始错误链
func Wrap(category error, err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, &wrapped{category: category, err: err})
}

type wrapped struct {
	category error
	err      error
}

func (w *wrapped) Error() string {
	return w.err.Error()
}

func (w *wrapped) Unwrap() []error {
	return []error{w.category, w.err}
}

// CategoryOf 返回 err 所属的分类，无法识别时返回 nil
func CategoryOf(err error) error {
	for _, c := range []error{ErrValidation, ErrNotFound, ErrConflict, ErrTransient, ErrDecode, ErrUnauthorized, ErrForbidden} {
		if errors.Is(err, c) {
			return c
		}
	}
	return nil
}

// IsTransient 判断错误是否可重试
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}

// IsRetryable 临时错误或未归类的底层错误（如数据库连接失败）值得重试，业务错误不重试
func IsRetryable(err error) bool {
	return err != nil && (IsTransient(err) || CategoryOf(err) == nil)
}
