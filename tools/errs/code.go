package errs

// Error codes grouped by layer: 10xxx general, 11xxx auth, 12xxx routing.
const (
	ServerInternalCode = 10000
	ArgsErrorCode      = 10001
	RecordNotFoundCode = 10002
	DuplicateKeyCode   = 10003

	UnauthorizedCode = 11000
	TokenExpiredCode = 11001
	TokenInvalidCode = 11002

	NoRecipientCode      = 12000
	RecipientMissingCode = 12001
	RecipientOfflineCode = 12002
	MalformedInputCode   = 12003
)

var (
	ErrInternalServer = NewCodeError(ServerInternalCode, "server internal error")
	ErrArgs           = NewCodeError(ArgsErrorCode, "args error")
	ErrRecordNotFound = NewCodeError(RecordNotFoundCode, "record not found")
	ErrDuplicateKey   = NewCodeError(DuplicateKeyCode, "duplicate key")

	ErrUnauthorized = NewCodeError(UnauthorizedCode, "Invalid Credentials")
	ErrTokenExpired = NewCodeError(TokenExpiredCode, "token expired")
	ErrTokenInvalid = NewCodeError(TokenInvalidCode, "token invalid")
)
