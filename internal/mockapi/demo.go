package mockapi

// SeedDemo fills every collection with a couple of entities so the mock
// server is useful out of the box.
func (s *Server) SeedDemo() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.insertLocked("news", Object{"id": "1", "title": "Assemblée générale", "content": "Jeudi 19h, salle commune."})
	s.insertLocked("news", Object{"id": "2", "title": "Travaux ascenseur", "content": "Ascenseur B arrêté lundi."})
	s.insertLocked("advertcategories", Object{"id": "1", "name": "Bricolage"})
	s.insertLocked("advertcategories", Object{"id": "2", "name": "Garde d'enfants"})
	s.insertLocked("adverts", Object{"id": "1", "title": "Perceuse à prêter", "category": "1"})
	s.insertLocked("events", Object{"id": "1", "title": "Fête des voisins", "date": "2026-05-29"})
	s.insertLocked("habitationgroups", Object{"id": "1", "name": "Résidence des Lilas"})
	s.insertLocked("habitations", Object{"id": "1", "name": "Bâtiment A", "group": "1"})
	s.insertLocked("recommendations", Object{"id": "1", "title": "Boulangerie du coin"})
	s.insertLocked("users", Object{"id": "1", "email": "gardien@example.org", "firstname": "Paul"})
	s.insertLocked("associations", Object{"id": "1", "name": "Amicale des locataires"})
	s.insertLocked("shops", Object{"id": "1", "name": "Épicerie solidaire"})
}
