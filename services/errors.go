package services

import (
	"errors"

	"github.com/Dosada05/valorant-arena/brackets"
	"github.com/Dosada05/valorant-arena/repositories"
)

// Общие ошибки, используемые в разных сервисах и маппинге HTTP.
var (
	// Ошибки валидации и бизнес-правил
	ErrValidationFailed   = errors.New("validation failed")
	ErrPasswordTooShort   = errors.New("password must be at least 8 characters")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidRiotID      = errors.New("riot id must look like Name#TAG")
	ErrRiotIDRequired     = errors.New("a riot id is required")
	ErrInvalidRegion      = errors.New("invalid region")
	ErrInvalidRole        = errors.New("invalid role")

	// Ошибки конфликтов
	ErrUserEmailConflict    = repositories.ErrUserEmailConflict
	ErrUserProviderConflict = repositories.ErrUserProviderConflict
	ErrRegistrationConflict = repositories.ErrRegistrationConflict
	ErrTeamNameConflict     = repositories.ErrRegistrationTeamNameConflict
	ErrTransactionIDUsed    = repositories.ErrPaymentTransactionConflict
	ErrPaymentUnderReview   = repositories.ErrPaymentPendingConflict
	ErrRiotIDTaken          = repositories.ErrUserRiotIDConflict
	ErrFreeAgentPostExists  = repositories.ErrFreeAgentPostConflict

	// Ошибки аутентификации и авторизации
	ErrAuthenticationFailed   = errors.New("authentication failed")
	ErrForbiddenOperation     = errors.New("operation not allowed for the current user")
	ErrCaptainActionForbidden = errors.New("only the team captain can perform this action")

	// Ошибки, специфичные для сущностей
	ErrUserNotFound           = repositories.ErrUserNotFound
	ErrTournamentNotFound     = repositories.ErrTournamentNotFound
	ErrRegistrationNotFound   = repositories.ErrRegistrationNotFound
	ErrMatchNotFound          = repositories.ErrMatchNotFound
	ErrPaymentRequestNotFound = repositories.ErrPaymentRequestNotFound
	ErrFreeAgentPostNotFound  = repositories.ErrFreeAgentPostNotFound
	ErrRiotAccountNotFound    = errors.New("riot account not found")

	// Ошибки турниров
	ErrTournamentNameRequired            = errors.New("tournament name is required")
	ErrTournamentDatesRequired           = errors.New("registration, start and end dates are required")
	ErrTournamentInvalidRegDate          = errors.New("registration date cannot be after start date")
	ErrTournamentInvalidDateRange        = errors.New("tournament end date must be after start date")
	ErrTournamentInvalidCapacity         = errors.New("max teams must be at least 2")
	ErrTournamentInvalidTeamSize         = errors.New("team size must be between 1 and 10")
	ErrTournamentInvalidBestOf           = errors.New("best of must be 1 or 3")
	ErrTournamentInvalidFee              = errors.New("entry fee cannot be negative")
	ErrTournamentInvalidBracketType      = errors.New("unsupported bracket type")
	ErrTournamentInvalidLegs             = errors.New("round robin legs must be 1 or 2")
	ErrMapPoolInvalid                    = errors.New("invalid map pool")
	ErrTournamentInvalidStatus           = errors.New("invalid tournament status provided")
	ErrTournamentInvalidStatusTransition = errors.New("invalid tournament status transition")
	ErrTournamentFinalized               = errors.New("tournament is completed or canceled")
	ErrBracketFieldsFrozen               = errors.New("bracket type, team size, best of and map pool cannot change once the bracket exists")
	ErrCapacityBelowRegistrations        = errors.New("max teams cannot drop below the current number of registrations")

	// Ошибки регистраций и оплаты
	ErrRegistrationNotOpen       = errors.New("tournament registration is not open")
	ErrTournamentFull            = errors.New("tournament registration is full")
	ErrTeamNameRequired          = errors.New("team name must be between 2 and 32 characters")
	ErrRosterInvalid             = errors.New("invalid roster")
	ErrCaptainNotOnRoster        = errors.New("captain must set a riot id on the profile or appear in the roster")
	ErrTransactionIDRequired     = errors.New("transaction id is required for paid tournaments")
	ErrRegistrationStatusInvalid = errors.New("registration is not in a state that allows this action")
	ErrPaymentNotVerified        = errors.New("entry fee payment has not been verified")
	ErrPaymentNotExpected        = errors.New("registration is not awaiting a payment")
	ErrPaymentAmountTooLow       = errors.New("amount is below the entry fee")
	ErrPaymentAlreadyReviewed    = repositories.ErrPaymentAlreadyReviewed

	// Ошибки сетки и матчей
	ErrBracketAlreadyGenerated = errors.New("bracket already generated")
	ErrBracketNotGenerated     = errors.New("bracket has not been generated")
	ErrBracketNotAllowed       = errors.New("bracket can only be generated while registration is open or the tournament is active")
	ErrNotEnoughTeams          = brackets.ErrNotEnoughTeams
	ErrMatchNotReady           = errors.New("both teams must be set")
	ErrMatchCompleted          = errors.New("match is already completed")
	ErrInvalidScore            = errors.New("scores must be non-negative and not equal")
	ErrMatchStatusTransition   = errors.New("match status can only move from scheduled to ongoing")

	// Map veto
	ErrNotYourTurn       = brackets.ErrNotYourTurn
	ErrVetoActionInvalid = brackets.ErrVetoActionInvalid
	ErrMapUnavailable    = brackets.ErrMapUnavailable
	ErrVetoComplete      = brackets.ErrVetoComplete

	// Free agents
	ErrFreeAgentRolesInvalid = errors.New("pick at least one of Duelist, Initiator, Controller, Sentinel, Flex")
	ErrDescriptionTooLong    = errors.New("description must be at most 500 characters")

	ErrStatsUnavailable = errors.New("stats api is not configured")
)
