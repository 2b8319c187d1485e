package testing

// Logger Constants
const (
	// TestLoggerLevelDebug is the debug log level used in most tests
	TestLoggerLevelDebug = "debug"
	// TestLoggerLevelDisabled completely disables logging in tests
	TestLoggerLevelDisabled = "disabled"
)

// Identity Constants
// Fixed credentials shared by tests that exercise authenticated calls.
const (
	TestXboxUserID = "2533274790395904"
	TestUserHash   = "11223344556677889900"
	TestToken      = "eyJ0ZXN0IjoidG9rZW4ifQ"
	TestSignature  = "AAAAAQHXBcsP7QmT"
)

// Service Constants
const (
	TestAPIName = "achievements"
	TestServer  = "https://achievements.xboxlive.com"
	TestSandbox = "XDKS.1"
	TestLocale  = "en-US"
)
