package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Timetable Change API",
        "description": "Validation and approval of timetable swap and leave requests",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "security": [
        {"BearerAuth": []}
    ],
    "tags": [
        {"name": "Swap Requests", "description": "Move a session to another day, slot or faculty"},
        {"name": "Leave Requests", "description": "Faculty absences and their remediation plans"},
        {"name": "Requests", "description": "Combined request listings"},
        {"name": "Timetable", "description": "Live timetable views and slot suggestions"},
        {"name": "Operations", "description": "Health, readiness and engine statistics"}
    ],
    "paths": {
        "/swap-requests/validate": {
            "post": {
                "tags": ["Swap Requests"],
                "summary": "Dry-run validation of a swap payload",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SwapRequestPayload"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid payload", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "429": {"description": "Rate limited", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/swap-requests": {
            "post": {
                "tags": ["Swap Requests"],
                "summary": "Create swap request",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SwapRequestPayload"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/swap-requests/detailed": {
            "get": {
                "tags": ["Swap Requests"],
                "summary": "List swap requests with session details",
                "parameters": [
                    {"name": "status", "in": "query", "type": "string", "description": "comma separated statuses"},
                    {"name": "facultyId", "in": "query", "type": "string"},
                    {"name": "limit", "in": "query", "type": "integer"},
                    {"name": "offset", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/swap-requests/{id}": {
            "get": {
                "tags": ["Swap Requests"],
                "summary": "Get swap request",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/swap-requests/{id}/validate": {
            "post": {
                "tags": ["Swap Requests"],
                "summary": "Re-validate a stored swap request",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Invalid state", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/swap-requests/{id}/submit": {
            "post": {
                "tags": ["Swap Requests"],
                "summary": "Submit a validated swap request for approval",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Invalid state", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/swap-requests/{id}/approve": {
            "post": {
                "tags": ["Swap Requests"],
                "summary": "Approve and apply a swap request",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "schema": {"$ref": "#/definitions/ReviewRequest"}}
                ],
                "responses": {
                    "200": {"description": "Applied", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Admin only", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Stale validation or lost race", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/swap-requests/{id}/reject": {
            "post": {
                "tags": ["Swap Requests"],
                "summary": "Reject a swap request",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ReviewRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/leave-requests": {
            "get": {
                "tags": ["Leave Requests"],
                "summary": "List leave requests",
                "parameters": [
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "facultyId", "in": "query", "type": "string"},
                    {"name": "limit", "in": "query", "type": "integer"},
                    {"name": "offset", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Leave Requests"],
                "summary": "Create leave request with impact analysis",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LeaveRequestPayload"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/leave-requests/{id}": {
            "get": {
                "tags": ["Leave Requests"],
                "summary": "Get leave request",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "put": {
                "tags": ["Leave Requests"],
                "summary": "Move a leave request through its lifecycle",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateLeaveRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/leave-requests/{id}/validate": {
            "post": {
                "tags": ["Leave Requests"],
                "summary": "Recompute the remediation plan",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/requests/detailed": {
            "get": {
                "tags": ["Requests"],
                "summary": "List swap and leave requests together",
                "parameters": [
                    {"name": "kind", "in": "query", "type": "string", "enum": ["SWAP", "LEAVE"]},
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "facultyId", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/timetable/faculty/{facultyId}": {
            "get": {
                "tags": ["Timetable"],
                "summary": "Faculty week view",
                "parameters": [
                    {"name": "facultyId", "in": "path", "required": true, "type": "string"},
                    {"name": "academicYear", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/timetable/section/{batch}/{section}": {
            "get": {
                "tags": ["Timetable"],
                "summary": "Section week view",
                "parameters": [
                    {"name": "batch", "in": "path", "required": true, "type": "string"},
                    {"name": "section", "in": "path", "required": true, "type": "string"},
                    {"name": "academicYear", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/timetable/sessions/{id}/suggestions": {
            "get": {
                "tags": ["Timetable"],
                "summary": "Rank alternative slots for a session",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "facultyId", "in": "query", "type": "string"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/stats": {
            "get": {
                "tags": ["Operations"],
                "summary": "Engine counters (admin only)",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "SwapRequestPayload": {
            "type": "object",
            "properties": {
                "requesting_faculty_id": {"type": "string"},
                "target_faculty_id": {"type": "string"},
                "original_session_id": {"type": "string"},
                "requested_day": {"type": "string", "enum": ["MONDAY", "TUESDAY", "WEDNESDAY", "THURSDAY", "FRIDAY", "SATURDAY"]},
                "requested_time_slot": {"type": "string", "example": "10:00-11:00"},
                "reason": {"type": "string"}
            },
            "required": ["requesting_faculty_id", "original_session_id", "requested_day", "requested_time_slot"]
        },
        "LeaveRequestPayload": {
            "type": "object",
            "properties": {
                "faculty_id": {"type": "string"},
                "leave_type": {"type": "string", "enum": ["SICK", "CASUAL", "ACADEMIC", "PERSONAL", "OTHER"]},
                "start_date": {"type": "string", "format": "date"},
                "end_date": {"type": "string", "format": "date"},
                "reason": {"type": "string"}
            },
            "required": ["faculty_id", "leave_type", "start_date", "end_date", "reason"]
        },
        "ReviewRequest": {
            "type": "object",
            "properties": {
                "admin_notes": {"type": "string"}
            }
        },
        "UpdateLeaveRequest": {
            "type": "object",
            "properties": {
                "status": {"type": "string", "enum": ["VALIDATED", "SUBMITTED", "APPROVED", "REJECTED"]},
                "admin_notes": {"type": "string"}
            },
            "required": ["status"]
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"},
                "details": {"type": "object"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "pagination": {"type": "object"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
