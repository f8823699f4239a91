package email

const (
	subjectInitialOutreach = "Scheduling your first appointment"
	subjectFollowUpFmt     = "Following up on your appointment (reminder %d)"
	subjectReferral        = "Referral options for your care"
)
