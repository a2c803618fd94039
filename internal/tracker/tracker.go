// Package tracker определяет типизированные промежуточные записи активности
// внешних трекеров и интерфейсы их клиентов. Каждое поле заполняется
// отдельной функцией маппинга и независимо дефолтится при отсутствии -
// отсутствующий атрибут у трекера не приводит к ошибке.
package tracker

import (
	"context"
	"errors"
	"time"
)

// ErrStop возвращается callback-ом итерации, чтобы остановить перебор
// без ошибки. Используется ингестом для отсечки окна по updated_at.
var ErrStop = errors.New("stop iteration")

// ChangeRequestActivity - одна запись активности pull/merge request,
// как её прислал code-hosting трекер. Содержит сырые идентифицирующие
// строки и не должна покидать границу ингеста.
type ChangeRequestActivity struct {
	Number       int
	Title        string
	AuthorLogin  string
	State        string
	CreatedAt    *time.Time
	UpdatedAt    *time.Time
	MergedAt     *time.Time
	ClosedAt     *time.Time
	Additions    int
	Deletions    int
	ChangedFiles int
}

// ReviewActivity - одно ревью, как его прислал трекер
type ReviewActivity struct {
	ReviewerLogin string
	State         string
	SubmittedAt   *time.Time
}

// IssueActivity - одна задача из issue tracker. Временные поля сырые:
// их разбор (и толерантность к мусору) - ответственность ингеста.
type IssueActivity struct {
	Key          string
	Status       string
	IssueType    string
	Priority     string
	AssigneeName string
	CreatedRaw   string
	UpdatedRaw   string
	DueDate      string
	Blocked      bool
}

// CodeHostClient - клиент code-hosting трекера.
//
//go:generate mockery --name=CodeHostClient --output=../mocks --outpkg=mocks --filename=code_host_client_mock.go
type CodeHostClient interface {
	// IterateChangeRequests перебирает change requests репозитория в порядке
	// убывания updated_at (самые свежие первыми) и вызывает fn для каждого.
	// Возврат ErrStop из fn останавливает перебор без ошибки. Сбой одного
	// элемента списка не прерывает последовательность.
	IterateChangeRequests(ctx context.Context, owner, repo string, fn func(ChangeRequestActivity) error) error

	// ListReviews возвращает ревью одного change request
	ListReviews(ctx context.Context, owner, repo string, number int) ([]ReviewActivity, error)
}

// IssueTrackerClient - клиент issue tracker.
//
//go:generate mockery --name=IssueTrackerClient --output=../mocks --outpkg=mocks --filename=issue_tracker_client_mock.go
type IssueTrackerClient interface {
	// SearchActiveIssues возвращает до maxResults задач проекта,
	// недавно обновлённые первыми
	SearchActiveIssues(ctx context.Context, projectKey string, maxResults int) ([]IssueActivity, error)
}
