package service

import "context"

type sessionSubjectKey struct{}

// WithSessionSubject returns a context carrying the verified session subject.
func WithSessionSubject(ctx context.Context, subject string) context.Context {
	return context.WithValue(ctx, sessionSubjectKey{}, subject)
}

// SessionSubject returns the subject placed by WithSessionSubject.
func SessionSubject(ctx context.Context) (string, bool) {
	s, ok := ctx.Value(sessionSubjectKey{}).(string)
	return s, ok && s != ""
}
