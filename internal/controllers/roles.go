package controllers

var validRoles = map[string]struct{}{
    "admin":    {},
    "operator": {},
}

func IsValidRole(role string) bool {
    _, ok := validRoles[role]
    return ok
}
