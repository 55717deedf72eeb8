package wasmsdk

// Guest export names.
const (
	ExportInit               = "steam_init"
	ExportShutdown           = "steam_shutdown"
	ExportManualDispatchInit = "steam_manual_dispatch_init"
	ExportRestartApp         = "steam_restart_app_if_necessary"
	ExportRunFrame           = "steam_run_frame"
	ExportNextCallback       = "steam_next_callback"
	ExportFreeLastCallback   = "steam_free_last_callback"
	ExportGetCallResult      = "steam_get_call_result"
	ExportAlloc              = "steam_alloc"
	ExportFree               = "steam_free"

	ExportAppID                 = "steam_app_id"
	ExportSteamID               = "steam_steam_id"
	ExportDLCCount              = "steam_dlc_count"
	ExportIsSteamDeck           = "steam_is_steam_running_on_steam_deck"
	ExportIsPhoneIdentifying    = "steam_is_phone_identifying"
	ExportIsPhoneVerified       = "steam_is_phone_verified"
	ExportGameLanguage          = "steam_current_game_language"
	ExportBetaName              = "steam_current_beta_name"
	ExportFileSize              = "steam_file_size"
	ExportFileRead              = "steam_file_read"
	ExportFileWrite             = "steam_file_write"
	ExportFileReadAsync         = "steam_file_read_async"
	ExportFileReadAsyncComplete = "steam_file_read_async_complete"
	ExportAuthSessionTicket     = "steam_auth_session_ticket"
)

// HostModule is the import module guests use for host services.
const HostModule = "steam_host"

// envelopeSize is the record steam_next_callback writes: user, id, ptr, len.
const envelopeSize = 16

// outSize is the scratch area reserved at load for out parameters.
const outSize = 32

// stringCap bounds strings returned by the language and beta exports.
const stringCap = 256

var required = []string{
	ExportInit,
	ExportShutdown,
	ExportManualDispatchInit,
	ExportRunFrame,
	ExportNextCallback,
	ExportFreeLastCallback,
	ExportGetCallResult,
	ExportAlloc,
}
