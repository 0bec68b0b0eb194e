package printer

const (
	keyResponseTitle   = "cli.response.title"
	keyResponseStatus  = "cli.response.status"
	keyResponseTime    = "cli.response.time"
	keyResponseSize    = "cli.response.size"
	keyResponseError   = "cli.response.error"
	keyBodyEmpty       = "cli.body.empty"
	keyBodyTruncate    = "cli.body.truncate_hint"
	keyFormTitle       = "cli.form.title"
	keyFormKeyHeader   = "cli.form.key_header"
	keyFormValueHeader = "cli.form.value_header"
	keyHistoryTitle    = "cli.history.title"
	keyHistoryEmpty    = "cli.history.empty"
	keyHistoryID       = "cli.history.id"
	keyHistoryWhen     = "cli.history.when"
	keyHistoryStatus   = "cli.history.status"
	keyHistoryTime     = "cli.history.time"
	keyHistorySize     = "cli.history.size"
)
