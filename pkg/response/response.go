package response

import (
	"net/http"

	"wxmall/pkg/errs"

	"github.com/gin-gonic/gin"
)

const (
	CodeSuccess     = 0
	CodeParamError  = 400
	CodeForbidden   = 403
	CodeNotFound    = 404
	CodeServerError = 500
)

// 业务错误码，按 errs.Kind 映射
const (
	CodeConflict          = 1001
	CodeInsufficientFunds = 1002
	CodeExpired           = 1003
	CodeTampered          = 1004
	CodeGateway           = 1005
)

type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    CodeSuccess,
		Message: "success",
		Data:    data,
	})
}

func Error(c *gin.Context, code int, message string) {
	c.JSON(http.StatusOK, Response{
		Code:    code,
		Message: message,
	})
}

func ParamError(c *gin.Context, message string) {
	Error(c, CodeParamError, message)
}

func ServerError(c *gin.Context, message string) {
	Error(c, CodeServerError, message)
}

// FromError 按错误分类映射业务码统一返回
func FromError(c *gin.Context, err error) {
	code := CodeServerError
	switch errs.KindOf(err) {
	case errs.KindNotFound:
		code = CodeNotFound
	case errs.KindForbidden:
		code = CodeForbidden
	case errs.KindTampered:
		code = CodeTampered
	case errs.KindBadRequest:
		code = CodeParamError
	case errs.KindConflict:
		code = CodeConflict
	case errs.KindInsufficientFunds:
		code = CodeInsufficientFunds
	case errs.KindExpired:
		code = CodeExpired
	case errs.KindGateway:
		code = CodeGateway
	}
	Error(c, code, err.Error())
}
