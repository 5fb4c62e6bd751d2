package models

import "time"

// SheetRow is one line of the emulated "Guests" sheet. Column tags carry the
// sheet header text; the emulator flattens them the same way the script does.
type SheetRow struct {
	Line      uint `gorm:"primaryKey;autoIncrement"`
	CreatedAt time.Time

	ID                 string `gorm:"index" sheet:"ID"`
	FullName           string `sheet:"Full Name"`
	Email              string `sheet:"Email"`
	PhoneNumber        string `sheet:"Phone Number"`
	WhatsappNumber     string `sheet:"WhatsApp Number"`
	Profession         string `sheet:"Profession"`
	SchoolLevel        string `sheet:"School Level"`
	SchoolDepartment   string `sheet:"School Department"`
	Birthday           string `sheet:"Birthday"`
	HowDidYouHear      string `sheet:"How Did You Hear"`
	InvitedBy          string `sheet:"Invited By"`
	ServiceDay         string `sheet:"Service Day"`
	Gender             string `sheet:"Gender"`
	MaritalStatus      string `sheet:"Marital Status"`
	HouseAddress       string `sheet:"House Address"`
	OfficeAddress      string `sheet:"Office Address"`
	BestReachMethod    string `sheet:"Best Reach Method"`
	JoinChurch         string `sheet:"Join Church"`
	JoinDepartment     string `sheet:"Join Department"`
	SelectedDepartment string `sheet:"Selected Department"`
	Blessings          string `sheet:"Blessings"`
	SubmissionDate     string `sheet:"Submission Date"`
	Status             string `gorm:"index" sheet:"Status"`
	MinisterName       string `sheet:"Minister Name"`
	LifeClassTeacher   string `sheet:"Life Class Teacher"`
	HodInCharge        string `sheet:"HOD in Charge"`
	JoinedChurch       string `sheet:"Joined Church"`
	DepartmentAssigned string `sheet:"Department Assigned"`
	MinisterComments   string `sheet:"Minister Comments"`
	CompletedDate      string `sheet:"Completed Date"`
}
