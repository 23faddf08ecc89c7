package resputil

type ErrorCode int

const (
	OK ErrorCode = 0

	// General
	InvalidRequest ErrorCode = 40001

	// Token
	TokenExpired ErrorCode = 40101
	TokenInvalid ErrorCode = 40102

	// Login
	InvalidCredentials ErrorCode = 40106
	MemberInactive     ErrorCode = 40107
	OAuthFailed        ErrorCode = 40108

	// User is not allowed to access the resource
	UserNotAllowed ErrorCode = 40301

	// Resource does not exist
	NotFound ErrorCode = 40401

	// Resource is not in a state that allows the operation
	InvalidState ErrorCode = 40901
	// A conflicting schedule already exists
	Duplicate ErrorCode = 40902

	// Storage or a downstream service failed
	ServiceError ErrorCode = 50001

	// Indicates laziness of the developer
	// Frontend will directly print the message without any translation
	NotSpecified ErrorCode = 99999
)
