package utils

import "github.com/labstack/echo/v4"

// Success writes {"success": true, "data": data}.
func Success(c echo.Context, status int, data any) error {
	return c.JSON(status, echo.Map{"success": true, "data": data})
}

// Failure writes {"success": false, "message": msg}.
func Failure(c echo.Context, status int, msg string) error {
	return c.JSON(status, echo.Map{"success": false, "message": msg})
}
