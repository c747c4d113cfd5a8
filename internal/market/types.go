package market

type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Address  string
}

type UpdateProfileInput struct {
	UserID   int64
	Name     string
	Password string
	Address  string
}

type AddGameInput struct {
	OwnerID       int64
	Name          string
	Publisher     string
	YearPublished int
	System        string
	Condition     string
}

type UpdateGameInput struct {
	ActorID       int64
	GameID        int64
	Name          string
	Publisher     string
	YearPublished int
	System        string
	Condition     string
}

type ProposeOfferInput struct {
	SenderID      int64
	OfferedGameID int64
	DesiredGameID int64
}
