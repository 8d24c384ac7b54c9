package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/webapi/proxyutil"
)

// apiError carries the numeric code the failure envelope exposes next to
// the human-readable message.
type apiError struct {
	code uint32
	msg  string
}

func (e *apiError) Error() string {
	return e.msg
}

func (e *apiError) Code() uint32 {
	return e.code
}

func Success(c *gin.Context, data interface{}) {
	proxyutil.SuccessJson(c, data)
}

// Error writes the failure envelope. The transport status stays 200 OK;
// clients read the embedded code.
func Error(c *gin.Context, code int, message string) {
	proxyutil.FailJson(c, http.StatusOK, &apiError{code: uint32(code), msg: message})
}
