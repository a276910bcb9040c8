package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Thesis Review API",
        "description": "Topic registration, tribunal assignment, versioned submissions and verdict aggregation",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "tags": [
        {"name": "Topics", "description": "Thesis topic lifecycle"},
        {"name": "Assignments", "description": "Tribunal panels"},
        {"name": "Versions", "description": "Document versions submitted by students"},
        {"name": "Reviews", "description": "Evaluator verdicts"},
        {"name": "Feedback", "description": "Evaluator comments and files"},
        {"name": "Files", "description": "Signed document downloads"}
    ],
    "paths": {
        "/topics": {
            "get": {
                "tags": ["Topics"],
                "summary": "List topics visible to the caller",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "status", "in": "query", "type": "string", "enum": ["PRELIMINARY", "EN_REVISION", "REVISE", "REJECTED", "APPROVED"]},
                    {"name": "student_id", "in": "query", "type": "string"},
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "page_size", "in": "query", "type": "integer"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "post": {
                "tags": ["Topics"],
                "summary": "Register a topic with its first document",
                "security": [{"BearerAuth": []}],
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"name": "title", "in": "formData", "type": "string", "required": true},
                    {"name": "student_id", "in": "formData", "type": "string", "required": true},
                    {"name": "document", "in": "formData", "type": "file", "required": true}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation failed"},
                    "403": {"description": "Forbidden"}
                }
            }
        },
        "/topics/{id}": {
            "get": {
                "tags": ["Topics"],
                "summary": "Topic detail with panel and latest reviews",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not found"}}
            },
            "put": {
                "tags": ["Topics"],
                "summary": "Edit a preliminary topic",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true},
                    {"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateTopicRequest"}}
                ],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Topic already under review"}}
            },
            "delete": {
                "tags": ["Topics"],
                "summary": "Delete a preliminary topic",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}],
                "responses": {"204": {"description": "Deleted"}}
            }
        },
        "/topics/{id}/versions": {
            "get": {
                "tags": ["Versions"],
                "summary": "List document versions of a topic",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}],
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "tags": ["Versions"],
                "summary": "Submit a new document version",
                "security": [{"BearerAuth": []}],
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true},
                    {"name": "document", "in": "formData", "type": "file", "required": true},
                    {"name": "comment", "in": "formData", "type": "string"},
                    {"name": "assignment_id", "in": "formData", "type": "string"}
                ],
                "responses": {
                    "201": {"description": "Created"},
                    "400": {"description": "Nothing to resubmit"},
                    "409": {"description": "A review is still pending"}
                }
            }
        },
        "/topics/{id}/assignments": {
            "get": {
                "tags": ["Assignments"],
                "summary": "List the tribunal panel of a topic",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}],
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "tags": ["Assignments"],
                "summary": "Assign exactly three evaluators",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true},
                    {"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/AssignEvaluatorsRequest"}}
                ],
                "responses": {"201": {"description": "Created"}, "400": {"description": "Validation failed"}}
            }
        },
        "/evaluators/{id}/assignments": {
            "get": {
                "tags": ["Assignments"],
                "summary": "List assignments of an evaluator",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/assignments/{id}": {
            "get": {
                "tags": ["Assignments"],
                "summary": "Assignment detail",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/assignments/{id}/reviews": {
            "get": {
                "tags": ["Reviews"],
                "summary": "Review history of an assignment",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/assignments/{id}/reviews/latest": {
            "get": {
                "tags": ["Reviews"],
                "summary": "Latest review of an assignment",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/assignments/{id}/verdict": {
            "put": {
                "tags": ["Reviews"],
                "summary": "Record a verdict on the pending review of an assignment",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true},
                    {"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RecordVerdictRequest"}}
                ],
                "responses": {"200": {"description": "OK"}, "409": {"description": "Verdict already issued"}}
            }
        },
        "/reviews/{id}": {
            "get": {
                "tags": ["Reviews"],
                "summary": "Review detail",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/reviews/{id}/verdict": {
            "put": {
                "tags": ["Reviews"],
                "summary": "Record a verdict on a review",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true},
                    {"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RecordVerdictRequest"}}
                ],
                "responses": {"200": {"description": "OK"}, "409": {"description": "Verdict already issued"}}
            }
        },
        "/assignments/{id}/feedback": {
            "get": {
                "tags": ["Feedback"],
                "summary": "Comments and files attached to an assignment",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/assignments/{id}/feedback/comments": {
            "post": {
                "tags": ["Feedback"],
                "summary": "Add a comment",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true},
                    {"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/AddCommentRequest"}}
                ],
                "responses": {"201": {"description": "Created"}}
            }
        },
        "/assignments/{id}/feedback/files": {
            "post": {
                "tags": ["Feedback"],
                "summary": "Attach a file",
                "security": [{"BearerAuth": []}],
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true},
                    {"name": "document", "in": "formData", "type": "file", "required": true},
                    {"name": "description", "in": "formData", "type": "string"}
                ],
                "responses": {"201": {"description": "Created"}}
            }
        },
        "/versions/{id}/download-url": {
            "get": {
                "tags": ["Files"],
                "summary": "Issue a signed download link for a version document",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/files/download": {
            "get": {
                "tags": ["Files"],
                "summary": "Download a document with a signed token",
                "parameters": [{"name": "token", "in": "query", "type": "string", "required": true}],
                "responses": {"200": {"description": "File"}, "401": {"description": "Invalid or expired token"}}
            }
        }
    },
    "definitions": {
        "UpdateTopicRequest": {
            "type": "object",
            "properties": {"title": {"type": "string"}}
        },
        "AssignEvaluatorsRequest": {
            "type": "object",
            "properties": {"evaluatorIds": {"type": "array", "items": {"type": "string"}, "minItems": 3, "maxItems": 3}}
        },
        "RecordVerdictRequest": {
            "type": "object",
            "properties": {
                "verdict": {"type": "string", "enum": ["APPROVED", "APPROVED_WITH_OBSERVATIONS", "REVISE", "REJECTED"]},
                "observations": {"type": "string"}
            }
        },
        "AddCommentRequest": {
            "type": "object",
            "properties": {"body": {"type": "string"}}
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
