package errs

// 100xx：请求/权限类错误，客户端可见可恢复。
// 101xx：Sequencer/Log 内部一致性错误——出现在在线路径上即是 bug，
// 记录为 invariant violation，请求失败但不部分提交。
var (
	ErrUnauthorized         = NewCodeError(10001, "unauthorized")
	ErrConversationNotFound = NewCodeError(10002, "conversation not found")
	ErrNotAuthorized        = NewCodeError(10003, "not a participant of this conversation")
	ErrAlreadyMember        = NewCodeError(10004, "already a member")
	ErrNotMember            = NewCodeError(10005, "not a member")
	ErrPayloadTooLarge      = NewCodeError(10006, "payload too large")
	ErrOverloaded           = NewCodeError(10007, "subscriber queue overflow")
	ErrInvalidParticipant   = NewCodeError(10008, "invalid participant id")

	ErrOutOfOrder = NewCodeError(10101, "append out of order")
	ErrConflict   = NewCodeError(10102, "sequence number conflict")
)

// IsInvariantViolation 判断是否为 101xx 一致性错误
func IsInvariantViolation(err error) bool {
	c := Code(err)
	return c >= 10100 && c < 10200
}
