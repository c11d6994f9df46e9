// Package http implements the HTTP request handlers for the SupplyPulse
// web service. Handlers stay thin: they parse and validate the request,
// call one service method, and render the result. Business rules live
// in internal/services; handlers only speak HTTP.
//
// # Request Flow
//
//	HTTP Request → Chi Router → Middleware → Handler → Service → Engine
//	                                              ↓
//	HTTP Response ← Handler ← Service Response ←─┘
//
// # Error Handling
//
// Service errors arrive as sentinels from internal/errors and map to
// RFC 7807 Problem Details:
//
//	{
//	    "type": "/errors/run-not-found",
//	    "title": "Run Not Found",
//	    "status": 404,
//	    "detail": "No analysis run exists with the requested identifier.",
//	    "trace_id": "4bf92f3577b34da6"
//	}
//
// Handlers never inspect error strings; mapping goes through errors.Is
// on the sentinel chain.
//
// # Testing
//
// Handlers are tested with httptest against testify mocks of the narrow
// service interfaces they consume.
package http
