package login_test

import (
	"github.com/ivolevy/grupo5-usuarios-sub001/internal/db/controller/userstore"
	"github.com/ivolevy/grupo5-usuarios-sub001/internal/token"
)

func identity(id uint64, email, role string) token.Identity {
	return token.Identity{SubjectID: id, Email: email, Role: role}
}

func changesActive(active bool) userstore.Changes {
	return userstore.Changes{Active: &active}
}
