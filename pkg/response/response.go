package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	CodeSuccess     = 0
	CodeParamError  = 400
	CodeNotFound    = 404
	CodeServerError = 500
)

// 业务错误码，与账本错误一一对应
const (
	CodeInvalidAmount     = 1001
	CodeIneligibleMember  = 1002
	CodeMemberNotFound    = 1003
	CodeWalletNotFound    = 1004
	CodeBalanceNotEnough  = 1005
	CodeCardNotFound      = 1006
	CodeAlreadyRedeemed   = 1007
	CodeVoidedCard        = 1008
	CodeInvalidTransition = 1009
	CodeContention        = 1010
	CodeStorageError      = 1011
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

func BusinessError(c *gin.Context, code int, message string) {
	Error(c, code, message)
}
