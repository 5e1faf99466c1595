package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Tutor Match API",
        "description": "Tutor and student intake, administration and match generation",
        "version": "1.0.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "tags": [
        {"name": "Forms", "description": "Public tutor and parent intake"},
        {"name": "Admin", "description": "Administrator session and settings"},
        {"name": "Matches", "description": "Match generation, listing and export"},
        {"name": "Ops", "description": "Health, readiness and metrics"}
    ],
    "paths": {
        "/health": {
            "get": {
                "tags": ["Ops"],
                "summary": "Health check",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/ready": {
            "get": {
                "tags": ["Ops"],
                "summary": "Readiness check",
                "responses": {
                    "200": {"description": "Ready"},
                    "503": {"description": "A dependency is unavailable"}
                }
            }
        },
        "/metrics": {
            "get": {
                "tags": ["Ops"],
                "summary": "Prometheus metrics",
                "produces": ["text/plain"],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/api/v1/forms/instruments": {
            "get": {
                "tags": ["Forms"],
                "summary": "Instrument catalog",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/api/v1/forms/{role}/commands": {
            "post": {
                "tags": ["Forms"],
                "summary": "Apply a dynamic form command",
                "parameters": [
                    {"name": "role", "in": "path", "required": true, "type": "string", "enum": ["tutor", "parent"]},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/FormCommandRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Unknown role or command", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/forms/tutors": {
            "post": {
                "tags": ["Forms"],
                "summary": "Register a tutor",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RegisterTutorRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid submission", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Form closed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Email already registered", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/forms/parents": {
            "post": {
                "tags": ["Forms"],
                "summary": "Register a student through a parent",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RegisterParentRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid submission", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Form closed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/admin/login": {
            "post": {
                "tags": ["Admin"],
                "summary": "Administrator login",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/AdminLoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid password", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/admin/logout": {
            "post": {
                "tags": ["Admin"],
                "summary": "End every administrator session",
                "security": [{"BearerAuth": []}],
                "responses": {"204": {"description": "No Content"}}
            }
        },
        "/api/v1/admin/welcome": {
            "get": {
                "tags": ["Admin"],
                "summary": "Dashboard landing data",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/api/v1/admin/settings": {
            "get": {
                "tags": ["Admin"],
                "summary": "Current administrator settings",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "put": {
                "tags": ["Admin"],
                "summary": "Change email or password",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateAdminSettingsRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Incorrect password or invalid input", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/admin/form/open": {
            "post": {
                "tags": ["Admin"],
                "summary": "Open public intake",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/api/v1/admin/form/close": {
            "post": {
                "tags": ["Admin"],
                "summary": "Close public intake",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/api/v1/admin/reset": {
            "post": {
                "tags": ["Admin"],
                "summary": "Delete every match, student and tutor",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ResetRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Generation in progress", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/admin/metrics": {
            "get": {
                "tags": ["Ops"],
                "summary": "Request and generation metrics snapshot",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/api/v1/admin/matches": {
            "get": {
                "tags": ["Matches"],
                "summary": "List persisted matches",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "tutor_id", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "page_size", "in": "query", "type": "integer"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/api/v1/admin/matches/generate": {
            "post": {
                "tags": ["Matches"],
                "summary": "Run match generation",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Generation in progress", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "500": {"description": "Some matches could not be saved; data holds the summary", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/admin/matches/summary": {
            "get": {
                "tags": ["Matches"],
                "summary": "Summary of the last generation run",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "No run yet", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/admin/matches/status": {
            "get": {
                "tags": ["Matches"],
                "summary": "Generator state",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/api/v1/admin/matches/export": {
            "get": {
                "tags": ["Matches"],
                "summary": "Download every match",
                "security": [{"BearerAuth": []}],
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {"200": {"description": "File download"}}
            }
        }
    },
    "definitions": {
        "InstrumentEntry": {
            "type": "object",
            "required": ["value"],
            "properties": {
                "value": {"type": "string"},
                "other": {"type": "string"}
            }
        },
        "AvailabilityEntry": {
            "type": "object",
            "required": ["day", "start", "end"],
            "properties": {
                "day": {"type": "string", "example": "Monday"},
                "start": {"type": "string", "example": "15:00"},
                "end": {"type": "string", "example": "17:00"}
            }
        },
        "RegisterTutorRequest": {
            "type": "object",
            "required": ["full_name", "email", "instruments", "availability"],
            "properties": {
                "full_name": {"type": "string"},
                "email": {"type": "string"},
                "max_students": {"type": "integer"},
                "instruments": {"type": "array", "items": {"$ref": "#/definitions/InstrumentEntry"}},
                "availability": {"type": "array", "items": {"$ref": "#/definitions/AvailabilityEntry"}}
            }
        },
        "RegisterParentRequest": {
            "type": "object",
            "required": ["parent_name", "parent_email", "student_name", "instruments", "availability"],
            "properties": {
                "parent_name": {"type": "string"},
                "parent_email": {"type": "string"},
                "student_name": {"type": "string"},
                "instruments": {"type": "array", "items": {"$ref": "#/definitions/InstrumentEntry"}},
                "availability": {"type": "array", "items": {"$ref": "#/definitions/AvailabilityEntry"}}
            }
        },
        "FormCommandRequest": {
            "type": "object",
            "properties": {
                "state": {"type": "object"},
                "command": {
                    "type": "object",
                    "properties": {
                        "target": {"type": "string"},
                        "event": {"type": "string"}
                    }
                }
            }
        },
        "AdminLoginRequest": {
            "type": "object",
            "required": ["password"],
            "properties": {
                "password": {"type": "string"}
            }
        },
        "UpdateAdminSettingsRequest": {
            "type": "object",
            "required": ["old_password"],
            "properties": {
                "old_password": {"type": "string"},
                "new_email": {"type": "string"},
                "new_password": {"type": "string"},
                "new_password_confirmation": {"type": "string"}
            }
        },
        "ResetRequest": {
            "type": "object",
            "properties": {
                "reset_confirmation": {"type": "string", "example": "Yes"}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "pagination": {"$ref": "#/definitions/Pagination"},
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
