package auth

// Authorize decides whether the given identity may access a resource gated by
// the required role set. It is a pure predicate with no side effects:
//   - a nil identity is never authorized
//   - an empty required set admits any authenticated identity
//   - otherwise the identity's role must be a member of the required set
func Authorize(identity *Identity, required ...Role) bool {
	if identity == nil {
		return false
	}
	if len(required) == 0 {
		return true
	}
	for _, role := range required {
		if identity.Role == role {
			return true
		}
	}
	return false
}
