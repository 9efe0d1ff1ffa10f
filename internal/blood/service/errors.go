package service

import "errors"

// 工作流错误分类（可恢复错误，处理后本地状态不变）
var (
	// ErrNotCompatible 捐献者血型与请求血型不兼容
	ErrNotCompatible = errors.New("donor blood type is not compatible with this request")
	// ErrNotEligible 未满56天捐献间隔
	ErrNotEligible = errors.New("donor is not eligible to donate yet")
	// ErrAlreadyResponded 对同一请求重复响应
	ErrAlreadyResponded = errors.New("donor has already responded to this request")
	// ErrRequestAlreadyFulfilled 请求已被其他捐献者满足
	ErrRequestAlreadyFulfilled = errors.New("request has already been fulfilled")
	// ErrRequestCancelled 请求已被受血者取消
	ErrRequestCancelled = errors.New("request has been cancelled")
)
