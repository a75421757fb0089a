package serverutils

// BaseResponse is the uniform JSON envelope for every REST endpoint.
type BaseResponse struct {
	Success bool        `json:"success"`
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func OK(message string, data interface{}) BaseResponse {
	return BaseResponse{Success: true, Code: 200, Message: message, Data: data}
}

func Fail(code int, message string) BaseResponse {
	return BaseResponse{Success: false, Code: code, Message: message}
}
