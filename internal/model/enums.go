package model

// Render job status
type JobStatus string

const (
	JobStatusPending JobStatus = "pending"
	JobStatusRunning JobStatus = "running"
	JobStatusDone    JobStatus = "done"
	JobStatusFailed  JobStatus = "failed"
)

var ValidJobStatuses = []JobStatus{
	JobStatusPending, JobStatusRunning, JobStatusDone, JobStatusFailed,
}

// Terminal reports whether the status is final. Terminal jobs are immutable.
func (s JobStatus) Terminal() bool {
	return s == JobStatusDone || s == JobStatusFailed
}

// Camera types produced by script breakdown. Free-form values are accepted
// from the breakdown service; these are the ones it is prompted to use.
type CameraType string

const (
	CameraCloseUp      CameraType = "close-up"
	CameraMedium       CameraType = "medium"
	CameraWide         CameraType = "wide"
	CameraOverShoulder CameraType = "over-shoulder"
	CameraTracking     CameraType = "tracking"
)

// Shot motion hints
type Motion string

const (
	MotionStatic   Motion = "static"
	MotionPanLeft  Motion = "pan-left"
	MotionPanRight Motion = "pan-right"
	MotionDollyIn  Motion = "dolly-in"
	MotionDollyOut Motion = "dolly-out"
)
