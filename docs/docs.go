// Package docs holds the OpenAPI description served by gin-swagger.
// Regenerate with `swag init -g cmd/portal-rpa/main.go -o docs` after
// changing handler annotations.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/generate-id": {
            "post": {
                "description": "Returns the identifier bound to submission_id, issuing the next\nsequence number on first use. Repeated calls return the same value.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Identifiers"],
                "summary": "Get or create a message identifier",
                "operationId": "generateID",
                "parameters": [
                    {
                        "description": "Submission key",
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/handlers.GenerateIDRequest"}
                    }
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.GenerateIDResponse"}},
                    "400": {"description": "Empty submission id", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "500": {"description": "Allocation failed", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/submissions/company": {
            "post": {
                "description": "Logs into the portal, files a company enquiry, and publishes the\nresult page and PDF report. Retries with exponential backoff.\nA repeated Idempotency-Key replays the stored result.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Submissions"],
                "summary": "Generate a company report",
                "operationId": "submitCompany",
                "parameters": [
                    {"type": "string", "description": "Key for safe retries", "name": "Idempotency-Key", "in": "header"},
                    {
                        "description": "Company enquiry",
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/handlers.CompanyRequest"}
                    }
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.SubmissionResponse"}},
                    "400": {"description": "Missing fields", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "409": {"description": "Idempotency key reused", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "500": {"description": "All attempts failed", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/submissions/individual": {
            "post": {
                "description": "Same flow as the company endpoint for an individual enquiry.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Submissions"],
                "summary": "Generate an individual report",
                "operationId": "submitIndividual",
                "parameters": [
                    {"type": "string", "description": "Key for safe retries", "name": "Idempotency-Key", "in": "header"},
                    {
                        "description": "Individual enquiry",
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/handlers.IndividualRequest"}
                    }
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.SubmissionResponse"}},
                    "400": {"description": "Missing fields", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "409": {"description": "Idempotency key reused", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "500": {"description": "All attempts failed", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/config": {
            "get": {
                "security": [{"APIKey": []}],
                "produces": ["application/json"],
                "tags": ["Admin"],
                "summary": "Read portal settings",
                "operationId": "getConfig",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/config.PortalSettings"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            },
            "put": {
                "security": [{"APIKey": []}],
                "description": "Persists the settings file and swaps the snapshot used by new\nbrowser sessions. Sessions already running are unaffected.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Admin"],
                "summary": "Replace portal settings",
                "operationId": "putConfig",
                "parameters": [
                    {
                        "description": "New settings",
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/config.PortalSettings"}
                    }
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/config.PortalSettings"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/db/counter-state": {
            "get": {
                "security": [{"APIKey": []}],
                "produces": ["application/json"],
                "tags": ["Admin"],
                "summary": "Read the sequence counter",
                "operationId": "counterState",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.CounterStateResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/db/id-mappings": {
            "get": {
                "security": [{"APIKey": []}],
                "produces": ["application/json"],
                "tags": ["Admin"],
                "summary": "List submission key mappings",
                "operationId": "listIDMappings",
                "parameters": [
                    {"minimum": 1, "type": "integer", "default": 1, "description": "Page number", "name": "page", "in": "query"},
                    {"maximum": 500, "minimum": 1, "type": "integer", "default": 50, "description": "Items per page", "name": "page_size", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.IDMappingsResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "config.PortalSettings": {
            "type": "object",
            "required": ["LOGIN_URL", "PASSWORD", "USERNAME"],
            "properties": {
                "LOGIN_URL": {"type": "string"},
                "PASSWORD": {"type": "string"},
                "USERNAME": {"type": "string"}
            }
        },
        "domain.CounterState": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "last_val": {"type": "integer"}
            }
        },
        "domain.IDMapping": {
            "type": "object",
            "properties": {
                "created_at": {"type": "string"},
                "message_id": {"type": "string"},
                "submission_id": {"type": "string"}
            }
        },
        "handlers.CompanyRequest": {
            "type": "object",
            "properties": {
                "address": {"type": "string", "example": "Jl. Sudirman No. 1"},
                "business_number": {"type": "string", "example": "012345678901000"},
                "city_code": {"type": "string", "example": "0394"},
                "district": {"type": "string", "example": "Tanah Abang"},
                "message_id": {"type": "string", "example": "00001FTICLI112025"},
                "phone": {"type": "string", "example": "0215551234"},
                "postal_code": {"type": "string", "example": "10220"},
                "sub_district": {"type": "string", "example": "Karet Tengsin"},
                "trade_name": {"type": "string", "example": "PT Maju Jaya"}
            }
        },
        "handlers.CounterStateResponse": {
            "type": "object",
            "properties": {
                "counter": {"$ref": "#/definitions/domain.CounterState"},
                "timestamp": {"type": "string"}
            }
        },
        "handlers.ErrorResponse": {
            "type": "object",
            "properties": {
                "code": {"description": "Stable, machine-readable code (see errors.go constants)", "type": "string", "example": "bad_request"},
                "message": {"description": "Human-readable message (safe to show to users)", "type": "string", "example": "Submission ID cannot be empty"},
                "request_id": {"description": "Correlates server logs and client errors", "type": "string", "example": "123e4567-e89b-12d3-a456-426614174000"}
            }
        },
        "handlers.GenerateIDRequest": {
            "type": "object",
            "properties": {
                "submission_id": {"type": "string", "example": "form-2025-000123"}
            }
        },
        "handlers.GenerateIDResponse": {
            "type": "object",
            "properties": {
                "is_new": {"type": "boolean", "example": true},
                "message_id": {"type": "string", "example": "00001FTICLI112025"}
            }
        },
        "handlers.IDMappingsResponse": {
            "type": "object",
            "properties": {
                "mappings": {"type": "array", "items": {"$ref": "#/definitions/domain.IDMapping"}},
                "pagination": {"$ref": "#/definitions/handlers.Pagination"},
                "timestamp": {"type": "string"}
            }
        },
        "handlers.IndividualRequest": {
            "type": "object",
            "properties": {
                "address": {"type": "string", "example": "Jl. Melati 7"},
                "birth_date": {"type": "string", "example": "1990/05/17"},
                "city": {"type": "string", "example": "0394"},
                "district": {"type": "string", "example": "Menteng"},
                "gender": {"type": "string", "example": "M"},
                "id_number": {"type": "string", "example": "3171234567890001"},
                "identity_type": {"type": "string", "example": "1"},
                "message_id": {"type": "string", "example": "00002FTICLI112025"},
                "name": {"type": "string", "example": "Budi Santoso"},
                "phone_number": {"type": "string", "example": "081234567890"},
                "postal_code": {"type": "string", "example": "10310"},
                "sub_district": {"type": "string", "example": "Menteng"}
            }
        },
        "handlers.Pagination": {
            "type": "object",
            "properties": {
                "has_next": {"type": "boolean"},
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total": {"type": "integer"},
                "total_pages": {"type": "integer"}
            }
        },
        "handlers.SubmissionResponse": {
            "type": "object",
            "properties": {
                "attempts": {"type": "integer", "example": 1},
                "kind": {"type": "string", "example": "company"},
                "message": {"type": "string", "example": "Company report generated and uploaded successfully"},
                "message_id": {"type": "string", "example": "00001FTICLI112025"},
                "report_link": {"type": "string", "example": "https://drive.google.com/file/d/def/view"},
                "snapshot_link": {"type": "string", "example": "https://drive.google.com/file/d/abc/view"}
            }
        }
    },
    "securityDefinitions": {
        "APIKey": {
            "type": "apiKey",
            "name": "X-API-Key",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Portal RPA API",
	Description:      "Issues message identifiers and drives portal enquiries, publishing the result page and PDF report.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
