package constants

// Centralized constants for headers, env keys and external endpoints.
const (
	// Environment variable keys
	EnvSessionSecret       = "SESSION_SECRET"
	EnvGoogleClientID      = "GOOGLE_CLIENT_ID"
	EnvGoogleClientSecret  = "GOOGLE_CLIENT_SECRET"
	EnvSessionSecureCookie = "SESSION_SECURE_COOKIE"

	// Session / Cookie names
	CookieSessionName = "duat_session"

	// Google OAuth constants
	GoogleOAuthRedirect = "postmessage"
	GoogleUserInfoURL   = "https://www.googleapis.com/oauth2/v2/userinfo"
)

var (
	// Scopes for Google userinfo
	GoogleUserInfoScopes = []string{"https://www.googleapis.com/auth/userinfo.email", "https://www.googleapis.com/auth/userinfo.profile"}
)

// Routes used by the backend router
const (
	RouteAPIPrefix          = "/api"
	RouteEncounters         = "/encounters"
	RouteLeaderboard        = "/leaderboard"
	RouteAuthGoogleCallBack = "/auth/google/oauth2callback"
	RouteAuthMe             = "/auth/me"
	RouteAuthLogout         = "/auth/logout"
	RoutePlayerStats        = "/player-stats"
	RouteSessions           = "/sessions"
	RouteSessionsJoin       = "/sessions/join"
	RouteSessionByID        = "/sessions/:sessionID"
	RouteSessionStart       = "/sessions/:sessionID/start"
	RouteSessionLeave       = "/sessions/:sessionID/leave"
	RouteSessionActions     = "/sessions/:sessionID/actions"
	RouteSessionReactions   = "/sessions/:sessionID/reactions"
	RouteSessionStream      = "/sessions/:sessionID/stream"
	RouteSessionJournal     = "/sessions/:sessionID/journal"
	RouteVersion            = "/version"
)

// Common JSON response keys
const (
	JSONKeyError    = "error"
	JSONKeyMessage  = "message"
	JSONKeyDetails  = "details"
	JSONKeyStatus   = "status"
	JSONKeyAccepted = "accepted"
	JSONKeyReason   = "reason"
	JSONKeyRemoved  = "removed"
)

// Common error messages used across API handlers
const (
	ErrInvalidRequest         = "Invalid request"
	ErrMissingGoogleEnv       = "Missing GOOGLE_CLIENT_ID/GOOGLE_CLIENT_SECRET in environment"
	ErrInvalidSessionID       = "Invalid session ID"
	ErrSessionNotFound        = "Session not found"
	ErrFailedFetchSessions    = "Failed to fetch sessions"
	ErrFailedFetchLeaderboard = "Failed to fetch leaderboard"
	ErrFailedFetchStats       = "Failed to fetch stats"
	ErrEmailRequired          = "email is required"

	ErrFailedCreateSession      = "Failed to create session"
	ErrUnknownEncounter         = "Unknown encounter profile"
	ErrSessionFull              = "Session is full"
	ErrSessionAlreadyStarted    = "Session is already starting or started"
	ErrSessionNotInProgress     = "Session is not in progress"
	ErrNotEnoughParticipants    = "Not enough participants to start the session"
	ErrFailedUpdateSession      = "Failed to update session"
	ErrParticipantNotInSession  = "Participant not in this session"
	ErrActionRejected           = "Action rejected by the scheduler"
	ErrReactionWindowClosed     = "No reaction window is open"
	ErrFailedEnqueueAction      = "Failed to enqueue action"
	ErrUnknownActionKind        = "Unknown action kind"
	ErrUnknownPriority          = "Unknown priority class"
	ErrSessionRunnerUnavailable = "Session runtime is not available"

	ErrFailedCreateAuthSession = "Failed to create auth session"
	ErrFailedExchangeToken     = "Failed to exchange token"
	ErrFailedGetUserInfo       = "Failed to get user info"
	ErrFailedReadUserData      = "Failed to read user data: %s"
	ErrNoEmailInGoogleProfile  = "No email in Google profile"

	ErrAuthRequired   = "Authentication required"
	ErrInvalidSession = "Invalid session"
)

// Logging field names
const (
	LogFieldSessionID = "session_id"
	LogFieldActorID   = "actor_id"
	LogFieldActionID  = "action_id"
	LogFieldEncounter = "encounter"
	LogFieldKind      = "kind"
	LogFieldCost      = "cost"
	LogFieldAddr      = "addr"
	LogFieldCount     = "count"
	LogFieldReason    = "reason"
	LogFieldVersion   = "version"
)

// Session limits
const (
	MaxSessionNameLen = 32
	MaxParticipants   = 2
	JoinCodeLength    = 8
)
