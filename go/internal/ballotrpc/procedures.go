package ballotrpc

const (
	// VoteServiceName is the fully-qualified name of the vote service
	VoteServiceName = "liveballot.v1.VoteService"
	// SettingsServiceName is the fully-qualified name of the settings service
	SettingsServiceName = "liveballot.v1.SettingsService"
)

const (
	VoteServiceListVotesProcedure         = "/" + VoteServiceName + "/ListVotes"
	VoteServiceGetVoteProcedure           = "/" + VoteServiceName + "/GetVote"
	VoteServiceIncrementVoteProcedure     = "/" + VoteServiceName + "/IncrementVote"
	VoteServiceUpdateVotesProcedure       = "/" + VoteServiceName + "/UpdateVotes"
	SettingsServiceGetSettingProcedure    = "/" + SettingsServiceName + "/GetSetting"
	SettingsServiceUpsertSettingProcedure = "/" + SettingsServiceName + "/UpsertSetting"
)

// AdminTokenHeader carries the optional admin token for settings writes
const AdminTokenHeader = "X-Admin-Token"
