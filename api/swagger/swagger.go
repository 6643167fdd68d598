package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Vidyalaya API",
        "description": "School management backend with geofenced teacher attendance",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Authentication", "description": "Login, token refresh and password management"},
        {"name": "Attendance", "description": "Geofenced teacher attendance and reports"},
        {"name": "Locations", "description": "Institute geofence anchor registry"},
        {"name": "Teachers", "description": "Teacher roster management"},
        {"name": "Students", "description": "Student roster management"},
        {"name": "Users", "description": "User account administration"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate user",
                "responses": {
                    "200": {"description": "OK"},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/auth/refresh": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Refresh access token",
                "responses": {
                    "200": {"description": "OK"},
                    "401": {"description": "Expired or revoked token"}
                }
            }
        },
        "/attendance": {
            "post": {
                "tags": ["Attendance"],
                "summary": "Mark attendance (full-day or subject-wise)",
                "responses": {
                    "201": {"description": "Attendance marked"},
                    "400": {"description": "Validation or location acquisition failure"},
                    "403": {"description": "Outside every configured location"},
                    "409": {"description": "Day already marked or cooldown active"}
                }
            },
            "get": {
                "tags": ["Attendance"],
                "summary": "List attendance records (admin)",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/attendance/today": {
            "get": {
                "tags": ["Attendance"],
                "summary": "Today's attendance status for the caller",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/attendance/reports/{id}": {
            "get": {
                "tags": ["Attendance"],
                "summary": "Monthly attendance report for a teacher",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/attendance/reports/{id}/export": {
            "get": {
                "tags": ["Attendance"],
                "summary": "Export monthly report as CSV or PDF",
                "responses": {
                    "200": {"description": "File download"}
                }
            }
        },
        "/locations": {
            "get": {
                "tags": ["Locations"],
                "summary": "List institute locations",
                "responses": {
                    "200": {"description": "OK"}
                }
            },
            "post": {
                "tags": ["Locations"],
                "summary": "Create institute location (admin)",
                "responses": {
                    "201": {"description": "Created"}
                }
            }
        }
    },
    "definitions": {
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
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
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
