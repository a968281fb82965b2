package response

// Response 统一的响应结构
type Response struct {
	Msg  string `json:"msg"`
	Data any    `json:"data"`
}
