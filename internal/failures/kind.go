package failures

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"syscall"

	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"
)

// Kind names the class of a failure.
type Kind string

// Supported failure kinds.
const (
	KindValidation    Kind = Kind("validation")
	KindTransient     Kind = Kind("transient")
	KindPermission    Kind = Kind("permission")
	KindAlreadyExists Kind = Kind("already_exists")
	KindNotFound      Kind = Kind("not_found")
	KindCanceled      Kind = Kind("canceled")
	KindUnknown       Kind = Kind("unknown")
)

// Retryable reports whether failures of this kind are worth another attempt.
func (kind Kind) Retryable() bool {
	return kind == KindTransient
}

var apiErrorCodeKinds = map[string]Kind{
	"Throttling":                             KindTransient,
	"ThrottlingException":                    KindTransient,
	"ThrottledException":                     KindTransient,
	"RequestThrottled":                       KindTransient,
	"RequestThrottledException":              KindTransient,
	"RequestLimitExceeded":                   KindTransient,
	"TooManyRequestsException":               KindTransient,
	"ProvisionedThroughputExceededException": KindTransient,
	"SlowDown":                               KindTransient,
	"BandwidthLimitExceeded":                 KindTransient,
	"RequestTimeout":                         KindTransient,
	"RequestTimeoutException":                KindTransient,
	"PriorRequestNotComplete":                KindTransient,
	"InternalError":                          KindTransient,
	"InternalFailure":                        KindTransient,
	"ServiceFailure":                         KindTransient,
	"ServiceUnavailable":                     KindTransient,
	"ServiceUnavailableException":            KindTransient,
	"ConcurrentModification":                 KindTransient,
	"EntityTemporarilyUnmodifiable":          KindTransient,
	"ServerException":                        KindTransient,
	"AccessDenied":                           KindPermission,
	"AccessDeniedException":                  KindPermission,
	"AllAccessDisabled":                      KindPermission,
	"AccountProblem":                         KindPermission,
	"AuthFailure":                            KindPermission,
	"ExpiredToken":                           KindPermission,
	"ExpiredTokenException":                  KindPermission,
	"InvalidAccessKeyId":                     KindPermission,
	"InvalidClientTokenId":                   KindPermission,
	"InvalidToken":                           KindPermission,
	"NotAuthorized":                          KindPermission,
	"SignatureDoesNotMatch":                  KindPermission,
	"UnauthorizedAccess":                     KindPermission,
	"UnauthorizedOperation":                  KindPermission,
	"EntityAlreadyExists":                    KindAlreadyExists,
	"EntityAlreadyExistsException":           KindAlreadyExists,
	"BucketAlreadyExists":                    KindAlreadyExists,
	"BucketAlreadyOwnedByYou":                KindAlreadyExists,
	"RepositoryAlreadyExistsException":       KindAlreadyExists,
	"NoSuchBucket":                           KindNotFound,
	"NoSuchKey":                              KindNotFound,
	"NoSuchEntity":                           KindNotFound,
	"NoSuchEntityException":                  KindNotFound,
	"NotFound":                               KindNotFound,
	"RepositoryNotFoundException":            KindNotFound,
	"LifecyclePolicyNotFoundException":       KindNotFound,
	"RepositoryPolicyNotFoundException":      KindNotFound,
	"AccessControlListNotSupported":          KindValidation,
	"InvalidArgument":                        KindValidation,
	"InvalidBucketName":                      KindValidation,
	"InvalidInput":                           KindValidation,
	"InvalidParameterException":              KindValidation,
	"InvalidParameterValue":                  KindValidation,
	"InvalidTagParameterException":           KindValidation,
	"InvalidRequest":                         KindValidation,
	"MalformedACLError":                      KindValidation,
	"MalformedPolicyDocument":                KindValidation,
	"PasswordPolicyViolation":                KindValidation,
	"ValidationError":                        KindValidation,
	"ValidationException":                    KindValidation,
}

// Classify assigns a failure kind to an error returned by the cloud SDK or by this module.
// Context cancellation wins over every other signal so an interrupted run is never retried.
func Classify(err error) Kind {
	if err == nil {
		return KindUnknown
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return KindCanceled
	}

	var kindCarrier interface{ FailureKind() Kind }
	if errors.As(err, &kindCarrier) {
		return kindCarrier.FailureKind()
	}

	var apiError smithy.APIError
	if errors.As(err, &apiError) {
		if kind, known := apiErrorCodeKinds[apiError.ErrorCode()]; known {
			return kind
		}
	}

	var responseError *smithyhttp.ResponseError
	if errors.As(err, &responseError) {
		if kind, known := classifyStatusCode(responseError.HTTPStatusCode()); known {
			return kind
		}
	}

	if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED) {
		return KindTransient
	}

	var networkError net.Error
	if errors.As(err, &networkError) {
		return KindTransient
	}

	if apiError != nil && apiError.ErrorFault() == smithy.FaultServer {
		return KindTransient
	}

	return KindUnknown
}

func classifyStatusCode(statusCode int) (Kind, bool) {
	switch {
	case statusCode == http.StatusTooManyRequests:
		return KindTransient, true
	case statusCode == http.StatusRequestTimeout:
		return KindTransient, true
	case statusCode >= http.StatusInternalServerError:
		return KindTransient, true
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return KindPermission, true
	case statusCode == http.StatusNotFound:
		return KindNotFound, true
	case statusCode == http.StatusConflict:
		return KindAlreadyExists, true
	case statusCode == http.StatusBadRequest:
		return KindValidation, true
	default:
		return "", false
	}
}
