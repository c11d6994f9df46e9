// Package narrative turns a run's warehouse summary into executive
// prose through an OpenAI-compatible chat-completions provider.
//
// The collaborator is optional: without an API key every call reports
// ErrNarrativeDisabled and nothing leaves the process. Provider
// failures surface as errors for the caller to present; they never
// touch tables, scores, or any other run output.
package narrative
