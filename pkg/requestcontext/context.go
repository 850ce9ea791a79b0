// Package requestcontext provides HTTP-independent context accessors for
// request-scoped values.
//
// Middleware sets these values; services read them without importing any
// net/http code. Tests inject them directly:
//
//	ctx = requestcontext.WithActor(ctx, "DOCTOR")
//	ctx = requestcontext.WithRequestID(ctx, "req-1")
package requestcontext

import (
	"context"
	"time"
)

// Context key types (unexported for encapsulation).
type (
	actorKey       struct{}
	subjectKey     struct{}
	clinicIDKey    struct{}
	deviceKey      struct{}
	clientIPKey    struct{}
	userAgentKey   struct{}
	requestIDKey   struct{}
	requestTimeKey struct{}
)

// Exported context keys for tests that need raw context.WithValue.
var (
	ContextKeyActor       = actorKey{}
	ContextKeySubject     = subjectKey{}
	ContextKeyClinicID    = clinicIDKey{}
	ContextKeyDevice      = deviceKey{}
	ContextKeyClientIP    = clientIPKey{}
	ContextKeyUserAgent   = userAgentKey{}
	ContextKeyRequestID   = requestIDKey{}
	ContextKeyRequestTime = requestTimeKey{}
)

// Device describes the calling device as parsed from its User-Agent.
type Device struct {
	Platform string
	OS       string
	Browser  string
	Mobile   bool
}

// Actor retrieves the authenticated actor role (APP, DOCTOR, ADMIN).
func Actor(ctx context.Context) string {
	if actor, ok := ctx.Value(ContextKeyActor).(string); ok {
		return actor
	}
	return ""
}

// WithActor injects an actor role into the context.
func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, ContextKeyActor, actor)
}

// Subject retrieves the authenticated subject identifier.
func Subject(ctx context.Context) string {
	if subject, ok := ctx.Value(ContextKeySubject).(string); ok {
		return subject
	}
	return ""
}

// WithSubject injects a subject identifier into the context.
func WithSubject(ctx context.Context, subject string) context.Context {
	return context.WithValue(ctx, ContextKeySubject, subject)
}

// ClinicID retrieves the clinic scope of the request.
func ClinicID(ctx context.Context) string {
	if clinicID, ok := ctx.Value(ContextKeyClinicID).(string); ok {
		return clinicID
	}
	return ""
}

// WithClinicID injects a clinic identifier into the context.
func WithClinicID(ctx context.Context, clinicID string) context.Context {
	return context.WithValue(ctx, ContextKeyClinicID, clinicID)
}

// DeviceInfo retrieves the parsed device metadata from the context.
func DeviceInfo(ctx context.Context) Device {
	if device, ok := ctx.Value(ContextKeyDevice).(Device); ok {
		return device
	}
	return Device{}
}

// WithDeviceInfo injects device metadata into a context.
func WithDeviceInfo(ctx context.Context, device Device) context.Context {
	return context.WithValue(ctx, ContextKeyDevice, device)
}

// ClientIP retrieves the client IP address from the context.
func ClientIP(ctx context.Context) string {
	if ip, ok := ctx.Value(ContextKeyClientIP).(string); ok {
		return ip
	}
	return ""
}

// UserAgent retrieves the raw User-Agent from the context.
func UserAgent(ctx context.Context) string {
	if ua, ok := ctx.Value(ContextKeyUserAgent).(string); ok {
		return ua
	}
	return ""
}

// WithClientMetadata injects client IP and User-Agent into a context.
func WithClientMetadata(ctx context.Context, clientIP, userAgent string) context.Context {
	ctx = context.WithValue(ctx, ContextKeyClientIP, clientIP)
	ctx = context.WithValue(ctx, ContextKeyUserAgent, userAgent)
	return ctx
}

// RequestID retrieves the request ID from the context.
func RequestID(ctx context.Context) string {
	if reqID, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		return reqID
	}
	return ""
}

// WithRequestID injects a request ID into the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// Now retrieves the request-scoped time from context, falling back to
// time.Now for workers, CLI commands and tests outside the middleware
// chain.
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(ContextKeyRequestTime).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime injects a specific time into a context.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, ContextKeyRequestTime, t)
}
