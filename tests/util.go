package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/trezcool/chuo/core/announcement"
	"github.com/trezcool/chuo/core/student"
	"github.com/trezcool/chuo/core/user"
)

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, uname, email, pwd string,
	roles []string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	t.Helper()

	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Name:      name,
		Username:  uname,
		Email:     email,
		Roles:     roles,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	usr.SetActive(isActive)
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

func CreateStudent(
	t *testing.T,
	repo student.Repository,
	number, firstName, lastName, email string,
	courseID int,
	schoolYear string,
	isActive bool,
	createdAt ...time.Time,
) student.Student {
	t.Helper()

	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	stu := student.Student{
		Number:     number,
		FirstName:  firstName,
		LastName:   lastName,
		Email:      email,
		CourseID:   courseID,
		CourseCode: student.CourseCode(courseID),
		SchoolYear: schoolYear,
		CreatedAt:  tstamp,
		UpdatedAt:  tstamp,
	}
	stu.SetActive(isActive)
	stu, err := repo.CreateStudent(context.Background(), stu)
	if err != nil {
		t.Fatalf("CreateStudent() failed: %v", err)
	}
	return stu
}

func CreateAnnouncement(
	t *testing.T,
	repo announcement.Repository,
	title, body, audience, createdBy string,
	publishedAt time.Time,
) announcement.Announcement {
	t.Helper()

	tstamp := time.Now().UTC()
	ann := announcement.Announcement{
		Title:       title,
		Body:        body,
		Audience:    audience,
		CreatedBy:   createdBy,
		PublishedAt: publishedAt,
		CreatedAt:   tstamp,
		UpdatedAt:   tstamp,
	}
	ann, err := repo.CreateAnnouncement(context.Background(), ann)
	if err != nil {
		t.Fatalf("CreateAnnouncement() failed: %v", err)
	}
	return ann
}
