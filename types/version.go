package types

// Version is the canonical project version.
// The CLI, the stored run reports and the published batch events share
// this version.
const Version = "1.0.0"

// ReportVersion is stamped on every stored run report and published event.
// It moves in lockstep with Version.
const ReportVersion = Version
