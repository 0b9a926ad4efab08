package errors

import "fmt"

const (
	InvalidTokenError         = "Token is invalid or has expired"
	MissingTokenError         = "You are not logged in! Please log in to get access"
	UserGoneError             = "The user belonging to this token does no longer exist"
	PasswordChangedError      = "User recently changed password! Please log in again"
	InvalidCredentials        = "Invalid identifier or password"
	NoUserError               = "No user found"
	WrongPasswordError        = "Your current password is wrong"
	NotMatchingPasswordsError = "Passwords are not the same"
	ResetTokenError           = "Token is invalid or has expired"
	NoPermissionError         = "You do not have permission to perform this action"
	NotFoundError             = "No document found with that ID"
	InvalidRequestFormatError = "Invalid request format"
	TooManyRequestsError      = "Too many requests from this IP, please try again in an hour!"
	MissingCoordinatesError   = "Please provide latitude and longitude in the format lat,lng"
	InvalidUnitError          = "Unit must be either mi or km"
	PasswordUpdateRouteError  = "This route is not for password updates. Please use /updateMyPassword"
	MailSendError             = "There was an error sending the email. Try again later!"
)

// AppError is an operational error carrying the HTTP status code it should
// map to. Storage and validation errors that are not AppErrors get
// translated centrally when the response is written.
type AppError struct {
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
}

func (e *AppError) Error() string {
	return e.Message
}

func New(message string, statusCode int) *AppError {
	return &AppError{Message: message, StatusCode: statusCode}
}

func Newf(statusCode int, format string, args ...interface{}) *AppError {
	return &AppError{Message: fmt.Sprintf(format, args...), StatusCode: statusCode}
}
