/*
Package thermal predicts spacecraft component temperatures and drives the
thermal control actuators.

# Model

GenerateForecast steps every component forward at a fixed interval (5 minutes
by default). Per step the net heat flow in watts is

	Q = exposure(location) * solarIntensity(env) + internalHeat
	    - emissivity * sigma * area * (T^4 - Tbg^4)
	    + actuator heat

and the temperature change is Q * dt / thermalMass. Coupled components exchange
a fixed share of their temperature difference every step. Confidence starts at
95 and decays 2 points per step down to 50.

# Flares

PredictFlareImpact converts a flare class and magnitude into absorbed heat per
component and reports the minutes until the nominal and survival maxima are
crossed, or NotReached.

# Actions

GenerateResponse turns a trigger and severity into a list of ThermalActions.
ExecuteAction drives one actuator for a ThermalAction:

	deploy_radiator       primary-radiator
	activate_heater       battery-heaters
	reorient, reduce_power thermal-louvers

Activation rises by 10/25/50/100 for low/medium/high/critical priority and
is capped at 100. Unknown actions or actuators produce a failed
ExecutionResult; nothing is changed.

All exported methods are safe for concurrent use.
*/
package thermal
