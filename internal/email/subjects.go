package email

const (
	subjectReportSubmittedFmt = "Question reported: %s"
)
