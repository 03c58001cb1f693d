package transfer

type InstagramIDResponse struct {
	ID string `json:"id"`
}

type InstagramErrorResponse struct {
	Error struct {
		Message        string `json:"message"`
		Type           string `json:"type"`
		Code           int    `json:"code"`
		ErrorSubcode   int    `json:"error_subcode"`
		IsTransient    bool   `json:"is_transient"`
		ErrorUserTitle string `json:"error_user_title"`
		ErrorUserMsg   string `json:"error_user_msg"`
		FbtraceID      string `json:"fbtrace_id"`
	} `json:"error"`
}

// InstagramContainerStatus is the processing state of an uploaded video
// container: IN_PROGRESS, FINISHED or ERROR.
type InstagramContainerStatus struct {
	StatusCode string `json:"status_code"`
	ID         string `json:"id"`
}
