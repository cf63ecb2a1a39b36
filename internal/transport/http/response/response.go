package response

type Resp struct {
	Code    int    `json:"code"`
	Success bool   `json:"success"`
	Msg     string `json:"msg"`
	Data    any    `json:"data"`
}

// New keeps data non-null.
func New(code int, msg string, data any) Resp {
	if data == nil {
		data = struct{}{}
	}
	return Resp{Code: code, Success: code == CodeOK || code == CodeCreated, Msg: msg, Data: data}
}

func OK(data any) Resp {
	return New(CodeOK, CodeMsgMap[CodeOK], data)
}

// OKMsg is OK with a custom message.
func OKMsg(msg string, data any) Resp {
	return New(CodeOK, msg, data)
}

func Created(msg string, data any) Resp {
	if msg == "" {
		msg = CodeMsgMap[CodeCreated]
	}
	return New(CodeCreated, msg, data)
}

// Error overrides the default message when customMsg is set.
func Error(code int, customMsg string) Resp {
	return ErrorWith(code, customMsg, nil)
}

// ErrorWith is Error carrying a payload, e.g. the entry that blocked a clock-in.
func ErrorWith(code int, customMsg string, data any) Resp {
	msg := CodeMsgMap[code]
	if customMsg != "" {
		msg = customMsg
	}
	return New(code, msg, data)
}
